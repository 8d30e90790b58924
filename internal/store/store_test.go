package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aquasense/aquasense/internal/risk"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "aquasense.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fptr(v float64) *float64 { return &v }

func TestSensorRoundTrip(t *testing.T) {
	s := openTestStore(t)
	created, err := s.CreateSensor("North Plant Inlet", "Plant A", "multiparameter", "")
	if err != nil {
		t.Fatal(err)
	}
	if created.Status != "active" {
		t.Fatalf("default status must be active, got %q", created.Status)
	}
	got, err := s.GetSensor(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "North Plant Inlet" || got.Location != "Plant A" {
		t.Fatalf("unexpected sensor %+v", got)
	}
	list, err := s.ListSensors()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 sensor, got %d", len(list))
	}
	if _, err := s.GetSensor("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadingsWindowOrderingAndNulls(t *testing.T) {
	s := openTestStore(t)
	sensor, err := s.CreateSensor("Inlet", "Plant A", "multiparameter", "active")
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	// Insert out of order; the window query must come back ascending.
	for _, offset := range []int{2, 0, 1} {
		input := ReadingInput{Timestamp: base.Add(time.Duration(offset) * time.Hour)}
		if offset != 1 {
			input.BacterialCount = fptr(1000 * float64(offset+1))
		}
		if _, err := s.CreateReading(sensor.ID, input); err != nil {
			t.Fatal(err)
		}
	}
	readings, err := s.ReadingsInWindow([]string{sensor.ID}, base, base.Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.Before(readings[i-1].Timestamp) {
			t.Fatal("window readings must be ascending by timestamp")
		}
	}
	if readings[1].BacterialCount != nil {
		t.Fatal("absent channel must come back nil, not zero")
	}
	if readings[0].BacterialCount == nil || *readings[0].BacterialCount != 1000 {
		t.Fatalf("unexpected first reading %+v", readings[0])
	}
}

func TestReadingsWindowSubsecondBoundary(t *testing.T) {
	s := openTestStore(t)
	sensor, err := s.CreateSensor("Inlet", "Plant A", "multiparameter", "active")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	// Whole-second window bounds, fractional reading timestamps: the stored
	// text must still compare correctly.
	for _, ts := range []time.Time{
		start.Add(500 * time.Millisecond),
		start.Add(time.Hour),
	} {
		if _, err := s.CreateReading(sensor.ID, ReadingInput{Timestamp: ts}); err != nil {
			t.Fatal(err)
		}
	}
	readings, err := s.ReadingsInWindow([]string{sensor.ID}, start, start.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 2 {
		t.Fatalf("both readings are inside the window, got %d", len(readings))
	}
	if !readings[0].Timestamp.Equal(start.Add(500 * time.Millisecond)) {
		t.Fatalf("unexpected first reading timestamp %v", readings[0].Timestamp)
	}
}

func TestReadingsOrderingMixedPrecision(t *testing.T) {
	s := openTestStore(t)
	sensor, err := s.CreateSensor("Inlet", "Plant A", "multiparameter", "active")
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 8, 25, 6, 0, 5, 0, time.UTC)
	// Same second, mixed precision, inserted out of order.
	stamps := []time.Time{
		base.Add(500 * time.Millisecond),
		base,
		base.Add(999 * time.Millisecond),
	}
	for _, ts := range stamps {
		if _, err := s.CreateReading(sensor.ID, ReadingInput{Timestamp: ts}); err != nil {
			t.Fatal(err)
		}
	}
	readings, err := s.ReadingsInWindow([]string{sensor.ID}, base.Add(-time.Second), base.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if !readings[i].Timestamp.After(readings[i-1].Timestamp) {
			t.Fatalf("ascending order violated: %v then %v", readings[i-1].Timestamp, readings[i].Timestamp)
		}
	}

	latest, err := s.ListSensorReadings(sensor.ID, base.Add(-time.Second), 3)
	if err != nil {
		t.Fatal(err)
	}
	if !latest[0].Timestamp.Equal(base.Add(999 * time.Millisecond)) {
		t.Fatalf("newest-first order violated, first is %v", latest[0].Timestamp)
	}
}

func TestCreateReadingUnknownSensor(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateReading("missing", ReadingInput{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSensorReadingsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	sensor, _ := s.CreateSensor("Inlet", "Plant A", "multiparameter", "active")
	base := time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := s.CreateReading(sensor.ID, ReadingInput{Timestamp: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}
	readings, err := s.ListSensorReadings(sensor.ID, base.Add(time.Hour), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 2 {
		t.Fatalf("limit not applied, got %d", len(readings))
	}
	if !readings[0].Timestamp.After(readings[1].Timestamp) {
		t.Fatal("sensor readings must be newest first")
	}
}

func testAnalysis() risk.Analysis {
	start := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	return risk.Analysis{
		Window:    risk.Window{Start: start, End: start.Add(24 * time.Hour)},
		SensorIDs: []string{"s1", "s2"},
		Determination: risk.Determination{
			RiskLevel:  risk.RiskHigh,
			Confidence: 0.8,
			Summary:    "elevated bacterial load",
			Predictions: []risk.Prediction{
				{Date: "2026-08-26", RiskLevel: risk.RiskHigh, Confidence: 0.7},
			},
			Recommendations: []string{"increase sampling"},
			Trend:           risk.TrendIncreasing,
		},
		AvgBacterialCount: 1333.33,
		AvgViralLoad:      42,
		ModelVersion:      "model-x",
		ProcessingTime:    1500 * time.Millisecond,
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	s := openTestStore(t)
	created, err := s.CreateAnalysis(testAnalysis())
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetAnalysis(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RiskLevel != risk.RiskHigh || got.Trend != risk.TrendIncreasing {
		t.Fatalf("unexpected analysis %+v", got)
	}
	if len(got.SensorIDs) != 2 || got.SensorIDs[0] != "s1" {
		t.Fatalf("sensor ids lost: %v", got.SensorIDs)
	}
	if len(got.Predictions) != 1 || got.Predictions[0].RiskLevel != risk.RiskHigh {
		t.Fatalf("predictions lost: %v", got.Predictions)
	}
	if got.ProcessingTimeMS != 1500 {
		t.Fatalf("unexpected processing time %d", got.ProcessingTimeMS)
	}
	list, err := s.ListAnalyses(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(list))
	}
}

func TestAlertLifecycle(t *testing.T) {
	s := openTestStore(t)
	analysis, _ := s.CreateAnalysis(testAnalysis())
	draft := risk.AlertDraft{Type: risk.AlertTypeWarning, Severity: risk.RiskHigh, Title: "Elevated risk level detected", Message: "elevated bacterial load"}
	alert, err := s.CreateAlert(analysis.ID, draft)
	if err != nil {
		t.Fatal(err)
	}
	if alert.Acknowledged {
		t.Fatal("new alerts start unacknowledged")
	}

	unacked := false
	list, err := s.ListAlerts(&unacked, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 unacknowledged alert, got %d", len(list))
	}

	acked, err := s.AcknowledgeAlert(alert.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !acked.Acknowledged || acked.AcknowledgedAt == nil {
		t.Fatalf("acknowledgement not recorded: %+v", acked)
	}

	reverted, err := s.AcknowledgeAlert(alert.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if reverted.Acknowledged || reverted.AcknowledgedAt != nil {
		t.Fatalf("unacknowledge must clear the timestamp: %+v", reverted)
	}

	if _, err := s.AcknowledgeAlert("missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAlertsByAnalysis(t *testing.T) {
	s := openTestStore(t)
	first, _ := s.CreateAnalysis(testAnalysis())
	second, _ := s.CreateAnalysis(testAnalysis())
	draft := risk.AlertDraft{Type: risk.AlertTypeWarning, Severity: risk.RiskHigh, Title: "t", Message: "m"}
	if _, err := s.CreateAlert(first.ID, draft); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateAlert(second.ID, draft); err != nil {
		t.Fatal(err)
	}

	alerts, err := s.ListAlertsByAnalysis(first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 || alerts[0].AnalysisID != first.ID {
		t.Fatalf("expected only the first analysis's alert, got %+v", alerts)
	}
	none, err := s.ListAlertsByAnalysis("missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no alerts, got %d", len(none))
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.CurrentRiskLevel != risk.RiskLow || stats.LastAnalysisDate != nil {
		t.Fatalf("empty store must report low risk, got %+v", stats)
	}

	sensor, _ := s.CreateSensor("Inlet", "Plant A", "multiparameter", "active")
	if _, err := s.CreateSensor("Outlet", "Plant A", "multiparameter", "maintenance"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateReading(sensor.ID, ReadingInput{}); err != nil {
		t.Fatal(err)
	}
	analysis, _ := s.CreateAnalysis(testAnalysis())
	if _, err := s.CreateAlert(analysis.ID, risk.AlertDraft{Type: risk.AlertTypeWarning, Severity: risk.RiskHigh, Title: "t", Message: "m"}); err != nil {
		t.Fatal(err)
	}

	stats, err = s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSensors != 2 || stats.ActiveSensors != 1 {
		t.Fatalf("unexpected sensor counts %+v", stats)
	}
	if stats.TotalReadings != 1 || stats.ActiveAlerts != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.CurrentRiskLevel != risk.RiskHigh || stats.LastAnalysisDate == nil {
		t.Fatalf("latest analysis not reflected %+v", stats)
	}
}
