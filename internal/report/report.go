package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/aquasense/aquasense/internal/risk"
	"github.com/aquasense/aquasense/internal/store"
)

const disclaimer = "This is an automated surveillance assessment, not a medical or regulatory opinion. " +
	"Confirm elevated findings with laboratory sampling before taking public-health action."

// BuildMarkdown renders a situation report for one analysis and the alerts it
// produced.
func BuildMarkdown(analysis store.Analysis, alerts []store.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Wastewater Risk Analysis Report\n\n")
	fmt.Fprintf(&b, "- Analysis ID: %s\n", analysis.ID)
	fmt.Fprintf(&b, "- Window: %s to %s\n", analysis.StartDate.Format(time.RFC3339), analysis.EndDate.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Sensors: %s\n", strings.Join(analysis.SensorIDs, ", "))
	fmt.Fprintf(&b, "- Generated: %s\n\n", analysis.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", disclaimer)

	fmt.Fprintf(&b, "## Assessment\n\n")
	fmt.Fprintf(&b, "**Risk level:** `%s` (confidence %.2f, trend %s)\n\n", analysis.RiskLevel, analysis.Confidence, analysis.Trend)
	fmt.Fprintf(&b, "%s\n\n", analysis.Summary)

	fmt.Fprintf(&b, "## Measured Aggregates\n\n")
	b.WriteString("These averages are computed directly from the raw readings, independently of the model, ")
	b.WriteString("so the qualitative assessment above can be sanity-checked against them.\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Average bacterial count | %.2f |\n", analysis.AvgBacterialCount)
	fmt.Fprintf(&b, "| Average viral load | %.2f |\n\n", analysis.AvgViralLoad)

	if len(analysis.Predictions) > 0 {
		fmt.Fprintf(&b, "## 7-Day Outlook\n\n")
		fmt.Fprintf(&b, "| Date | Risk level | Confidence |\n|---|---|---|\n")
		for _, p := range analysis.Predictions {
			fmt.Fprintf(&b, "| %s | %s | %.2f |\n", p.Date, p.RiskLevel, p.Confidence)
		}
		b.WriteString("\n")
	}

	if len(alerts) > 0 {
		fmt.Fprintf(&b, "## Alerts\n\n")
		for _, a := range alerts {
			status := "open"
			if a.Acknowledged {
				status = "acknowledged"
			}
			fmt.Fprintf(&b, "- **%s** (%s, %s): %s\n", a.Title, a.Severity, status, a.Message)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Pipeline Metadata\n\n")
	fmt.Fprintf(&b, "- Model: %s\n", modelLabel(analysis.ModelVersion))
	fmt.Fprintf(&b, "- Processing time: %d ms\n", analysis.ProcessingTimeMS)
	return b.String()
}

func modelLabel(version string) string {
	if version == risk.DemoModelVersion {
		return "demonstration mode (no backend configured)"
	}
	return version
}
