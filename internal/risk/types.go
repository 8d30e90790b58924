package risk

import "time"

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return RiskLevel(s), true
	}
	return "", false
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

func ParseTrend(s string) (Trend, bool) {
	switch Trend(s) {
	case TrendIncreasing, TrendDecreasing, TrendStable:
		return Trend(s), true
	}
	return "", false
}

// FallbackSummary replaces an absent or empty model summary so a
// Determination is never partially populated.
const FallbackSummary = "Analysis in progress..."

type Prediction struct {
	Date       string    `json:"date"`
	RiskLevel  RiskLevel `json:"riskLevel"`
	Confidence float64   `json:"confidence"`
}

// Determination is the validated, schema-complete output of the analysis
// pipeline. After ValidateDetermination every field is present and type-valid
// no matter what the model produced.
type Determination struct {
	RiskLevel       RiskLevel    `json:"riskLevel"`
	Confidence      float64      `json:"confidence"`
	Summary         string       `json:"summary"`
	Predictions     []Prediction `json:"predictions"`
	Recommendations []string     `json:"recommendations"`
	Trend           Trend        `json:"trend"`
}

// Reading is a single sensor measurement. Nil numeric fields mean the sensor
// did not report that channel; they are omitted from prompts but count as
// zero in aggregates.
type Reading struct {
	Timestamp       time.Time `json:"timestamp"`
	Temperature     *float64  `json:"temperature,omitempty"`
	PH              *float64  `json:"ph,omitempty"`
	Turbidity       *float64  `json:"turbidity,omitempty"`
	DissolvedOxygen *float64  `json:"dissolvedOxygen,omitempty"`
	Conductivity    *float64  `json:"conductivity,omitempty"`
	BacterialCount  *float64  `json:"bacterialCount,omitempty"`
	ViralLoad       *float64  `json:"viralLoad,omitempty"`
}

type Window struct {
	Start time.Time
	End   time.Time
}

// Analysis is the finalized result of one orchestration run. The averages are
// computed arithmetically from the raw readings and are stored next to the
// model's qualitative claim without ever being reconciled against it.
type Analysis struct {
	Window            Window
	SensorIDs         []string
	Determination     Determination
	AvgBacterialCount float64
	AvgViralLoad      float64
	ModelVersion      string
	ProcessingTime    time.Duration
}
