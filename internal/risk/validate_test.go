package risk

import "testing"

func TestValidateDeterminationDefaultsOnNil(t *testing.T) {
	det := ValidateDetermination(nil)
	if det.RiskLevel != RiskLow {
		t.Fatalf("expected low default, got %q", det.RiskLevel)
	}
	if det.Confidence != 0.5 {
		t.Fatalf("expected 0.5 default confidence, got %v", det.Confidence)
	}
	if det.Summary != FallbackSummary {
		t.Fatalf("expected fallback summary, got %q", det.Summary)
	}
	if det.Predictions == nil || len(det.Predictions) != 0 {
		t.Fatalf("predictions must be empty, got %v", det.Predictions)
	}
	if det.Recommendations == nil || len(det.Recommendations) != 0 {
		t.Fatalf("recommendations must be empty, got %v", det.Recommendations)
	}
	if det.Trend != TrendStable {
		t.Fatalf("expected stable default, got %q", det.Trend)
	}
}

func TestValidateDeterminationConfidenceClamping(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want float64
	}{
		{in: 1.4, want: 1.0},
		{in: -0.3, want: 0.0},
		{in: 0.7, want: 0.7},
		{in: "not a number", want: 0.5},
		{in: nil, want: 0.5},
	} {
		det := ValidateDetermination(map[string]any{"confidence": tc.in})
		if det.Confidence != tc.want {
			t.Fatalf("confidence %v: got %v, want %v", tc.in, det.Confidence, tc.want)
		}
	}
}

func TestValidateDeterminationUnknownRiskLevelDefaultsLow(t *testing.T) {
	for _, level := range []any{"extreme", "", 42, nil} {
		det := ValidateDetermination(map[string]any{"riskLevel": level})
		if det.RiskLevel != RiskLow {
			t.Fatalf("riskLevel %v: got %q, want low", level, det.RiskLevel)
		}
	}
	det := ValidateDetermination(map[string]any{"riskLevel": "critical"})
	if det.RiskLevel != RiskCritical {
		t.Fatalf("valid level must pass through, got %q", det.RiskLevel)
	}
}

func TestValidateDeterminationDropsMalformedPredictionsIndividually(t *testing.T) {
	det := ValidateDetermination(map[string]any{
		"predictions": []any{
			map[string]any{"date": "2026-09-02", "riskLevel": "high", "confidence": 0.8},
			"not an object",
			map[string]any{"riskLevel": "low"},
			map[string]any{"date": "2026-09-03", "riskLevel": "bogus", "confidence": 2.0},
		},
	})
	if len(det.Predictions) != 2 {
		t.Fatalf("expected 2 surviving predictions, got %d", len(det.Predictions))
	}
	if det.Predictions[0].RiskLevel != RiskHigh {
		t.Fatalf("unexpected first prediction %+v", det.Predictions[0])
	}
	// Malformed fields within a kept entry are defaulted, not dropped.
	if det.Predictions[1].RiskLevel != RiskLow || det.Predictions[1].Confidence != 1.0 {
		t.Fatalf("unexpected second prediction %+v", det.Predictions[1])
	}
}

func TestValidateDeterminationRecommendationsAndTrend(t *testing.T) {
	det := ValidateDetermination(map[string]any{
		"recommendations": []any{"increase sampling", 7, "", "notify operators"},
		"trend":           "increasing",
		"summary":         "bacterial load rising",
	})
	if len(det.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %v", det.Recommendations)
	}
	if det.Trend != TrendIncreasing {
		t.Fatalf("unexpected trend %q", det.Trend)
	}
	if det.Summary != "bacterial load rising" {
		t.Fatalf("unexpected summary %q", det.Summary)
	}
}
