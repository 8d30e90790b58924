package risk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxPromptReadings bounds prompt size: only the most recent readings are
// embedded verbatim, older ones are omitted rather than summarized.
const MaxPromptReadings = 20

const analysisFormatContract = `Provide a structured analysis as JSON with:
1. riskLevel: "low" | "medium" | "high" | "critical"
2. confidence: number between 0 and 1
3. summary: a 2-3 sentence assessment of the current situation
4. predictions: forecasts for the next 7 days (array of {date, riskLevel, confidence})
5. recommendations: array of concise recommendations
6. trend: "increasing" | "decreasing" | "stable"

Respond ONLY with valid JSON, without markdown.`

// BuildAnalysisPrompt renders the deterministic epidemiological prompt for a
// window of sensor readings.
func BuildAnalysisPrompt(readings []Reading, location string, window Window) string {
	recent := readings
	if len(recent) > MaxPromptReadings {
		recent = recent[len(recent)-MaxPromptReadings:]
	}
	blob, err := json.MarshalIndent(recent, "", "  ")
	if err != nil {
		blob = []byte("[]")
	}

	var sb strings.Builder
	sb.WriteString("You are an expert in epidemiology and public-health data analysis.\n")
	sb.WriteString("Analyze the following wastewater data collected by IoT sensors and provide an epidemic risk assessment.\n\n")
	sb.WriteString("Data:\n")
	fmt.Fprintf(&sb, "- Location: %s\n", location)
	fmt.Fprintf(&sb, "- Period: %s to %s\n", window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Number of readings: %d\n\n", len(readings))
	sb.WriteString("Sensor readings:\n")
	sb.Write(blob)
	sb.WriteString("\n\n")
	sb.WriteString(analysisFormatContract)
	return sb.String()
}

const chatFraming = `You are an expert in wastewater data analysis and epidemiology.
You help users understand their data, detect trends, and identify potential risks.

Context: the user operates a wastewater surveillance system for early epidemic detection.
Provide clear, precise, actionable answers.

If the user asks about the data, provide detailed analysis.
If the user asks for visualizations, suggest appropriate chart types.`

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FileContext carries the result of a prior spreadsheet analysis so the
// assistant can answer follow-up questions about it.
type FileContext struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
}

// BuildChatPrompt concatenates the fixed framing, the optional file context,
// the full prior history in order, and the new message.
func BuildChatPrompt(message string, history []ChatMessage, fileCtx *FileContext) string {
	var sb strings.Builder
	sb.WriteString(chatFraming)
	if fileCtx != nil {
		sb.WriteString("\n\nContext from the analyzed file:\n")
		if fileCtx.Summary != "" {
			fmt.Fprintf(&sb, "Summary: %s\n", fileCtx.Summary)
		}
		if len(fileCtx.Insights) > 0 {
			fmt.Fprintf(&sb, "Insights: %s\n", strings.Join(fileCtx.Insights, ", "))
		}
		sb.WriteString("Use this information to answer the user's question.")
	}
	sb.WriteString("\n\nConversation history:\n")
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(&sb, "\nUser: %s\nAssistant:", message)
	return sb.String()
}
