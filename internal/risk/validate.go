package risk

import "strings"

// ValidateDetermination turns an untrusted parsed object into a total,
// well-typed Determination. It is the sanitization boundary between free-form
// model output and persisted state: every field is clamped or defaulted,
// nothing is rejected, and it never fails. A nil map (extraction failure)
// yields the full default structure.
func ValidateDetermination(parsed map[string]any) Determination {
	det := Determination{
		RiskLevel:       RiskLow,
		Confidence:      0.5,
		Summary:         FallbackSummary,
		Predictions:     []Prediction{},
		Recommendations: []string{},
		Trend:           TrendStable,
	}
	if parsed == nil {
		return det
	}

	if s, ok := parsed["riskLevel"].(string); ok {
		if level, valid := ParseRiskLevel(s); valid {
			det.RiskLevel = level
		}
	}
	if f, ok := toFloat(parsed["confidence"]); ok {
		det.Confidence = clamp01(f)
	}
	if s, ok := parsed["summary"].(string); ok && strings.TrimSpace(s) != "" {
		det.Summary = s
	}
	if raw, ok := parsed["predictions"].([]any); ok {
		for _, entry := range raw {
			if p, ok := validatePrediction(entry); ok {
				det.Predictions = append(det.Predictions, p)
			}
		}
	}
	if raw, ok := parsed["recommendations"].([]any); ok {
		for _, entry := range raw {
			if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
				det.Recommendations = append(det.Recommendations, s)
			}
		}
	}
	if s, ok := parsed["trend"].(string); ok {
		if trend, valid := ParseTrend(s); valid {
			det.Trend = trend
		}
	}
	return det
}

// validatePrediction drops malformed entries individually instead of
// invalidating the whole sequence.
func validatePrediction(entry any) (Prediction, bool) {
	m, ok := entry.(map[string]any)
	if !ok {
		return Prediction{}, false
	}
	date, ok := m["date"].(string)
	if !ok || strings.TrimSpace(date) == "" {
		return Prediction{}, false
	}
	levelStr, _ := m["riskLevel"].(string)
	level, valid := ParseRiskLevel(levelStr)
	if !valid {
		level = RiskLow
	}
	confidence := 0.5
	if f, ok := toFloat(m["confidence"]); ok {
		confidence = clamp01(f)
	}
	return Prediction{Date: date, RiskLevel: level, Confidence: confidence}, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
