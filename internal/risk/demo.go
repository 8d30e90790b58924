package risk

import "fmt"

// DemoModelVersion marks results produced without a configured backend.
const DemoModelVersion = "demo"

// DemoDetermination is the fixed, schema-valid result returned when no model
// backend is configured. Offline installs must still get a well-formed answer.
func DemoDetermination() Determination {
	return Determination{
		RiskLevel:  RiskLow,
		Confidence: 0.5,
		Summary: "Demonstration mode: no model backend is configured. " +
			"Set ANTHROPIC_API_KEY to enable live risk analysis. " +
			"Numeric aggregates below are computed from the real readings.",
		Predictions:     []Prediction{},
		Recommendations: []string{"Configure a model backend to enable full risk analysis"},
		Trend:           TrendStable,
	}
}

func demoChatResponse(message string) string {
	return fmt.Sprintf("Demonstration mode is active.\n\n"+
		"To use the assistant, configure the ANTHROPIC_API_KEY environment variable.\n\n"+
		"Demonstration reply to your question: %q\n\n"+
		"With a model backend configured, I could analyze your wastewater data, "+
		"detect trends, identify epidemic risks, and suggest visualizations.", message)
}
