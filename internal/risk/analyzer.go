package risk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aquasense/aquasense/internal/inference"
)

// ErrNoDataInRange signals that a requested analysis window has no matching
// readings. Nothing is persisted in that case.
var ErrNoDataInRange = errors.New("no readings in the requested window")

// Invoker is the slice of the model cascade the analyzer needs. *inference.Cascade
// satisfies it; tests substitute fakes.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (inference.Outcome, error)
}

// Analyzer coordinates one analysis run: prompt, cascade, extraction,
// validation, and the independent numeric aggregates. The cascade is injected
// at construction; a nil cascade puts the analyzer in demonstration mode,
// which returns a fixed schema-valid result instead of calling any backend.
type Analyzer struct {
	cascade Invoker
}

func NewAnalyzer(cascade Invoker) *Analyzer {
	return &Analyzer{cascade: cascade}
}

func (a *Analyzer) Configured() bool { return a.cascade != nil }

// Analyze runs the full pipeline over the readings of one window. The model's
// qualitative output is validated field by field; the bacterial and viral
// averages are recomputed here from the raw readings and never taken from the
// model.
func (a *Analyzer) Analyze(ctx context.Context, readings []Reading, sensorIDs []string, location string, window Window) (Analysis, error) {
	ctx, span := otel.Tracer("aquasense/risk").Start(ctx, "risk.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.Int("readings.count", len(readings)),
		attribute.String("location", location),
	)

	if len(readings) == 0 {
		return Analysis{}, ErrNoDataInRange
	}
	started := time.Now()

	if a.cascade == nil {
		log.Printf("risk analyze_demo_mode readings=%d location=%q", len(readings), location)
		return a.demoAnalysis(readings, sensorIDs, window, started), nil
	}

	prompt := BuildAnalysisPrompt(readings, location, window)
	outcome, err := a.cascade.Invoke(ctx, prompt)
	if err != nil {
		return Analysis{}, fmt.Errorf("risk analysis: %w", err)
	}
	span.SetAttributes(attribute.String("model.version", outcome.Model))

	parsed, err := inference.ExtractJSONObject(outcome.Text)
	if err != nil {
		// Extraction failure is recovered locally: the validator substitutes
		// the full default structure.
		log.Printf("risk analyze_extraction_failed model=%s response_chars=%d", outcome.Model, len(outcome.Text))
	}
	det := ValidateDetermination(parsed)

	avgBacterial, avgViral := Averages(readings)
	return Analysis{
		Window:            window,
		SensorIDs:         sensorIDs,
		Determination:     det,
		AvgBacterialCount: avgBacterial,
		AvgViralLoad:      avgViral,
		ModelVersion:      outcome.Model,
		ProcessingTime:    time.Since(started),
	}, nil
}

func (a *Analyzer) demoAnalysis(readings []Reading, sensorIDs []string, window Window, started time.Time) Analysis {
	avgBacterial, avgViral := Averages(readings)
	return Analysis{
		Window:            window,
		SensorIDs:         sensorIDs,
		Determination:     DemoDetermination(),
		AvgBacterialCount: avgBacterial,
		AvgViralLoad:      avgViral,
		ModelVersion:      DemoModelVersion,
		ProcessingTime:    time.Since(started),
	}
}
