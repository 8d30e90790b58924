package report

import (
	"strings"
	"testing"
	"time"

	"github.com/aquasense/aquasense/internal/risk"
	"github.com/aquasense/aquasense/internal/store"
)

func sampleAnalysis() store.Analysis {
	start := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	return store.Analysis{
		ID:                "a1",
		StartDate:         start,
		EndDate:           start.Add(24 * time.Hour),
		SensorIDs:         []string{"s1", "s2"},
		RiskLevel:         risk.RiskHigh,
		Confidence:        0.82,
		Summary:           "Bacterial counts climbing at the north inlet.",
		Predictions:       []risk.Prediction{{Date: "2026-08-26", RiskLevel: risk.RiskHigh, Confidence: 0.7}},
		AvgBacterialCount: 1333.33,
		AvgViralLoad:      42,
		Trend:             risk.TrendIncreasing,
		ModelVersion:      "model-x",
		ProcessingTimeMS:  1500,
		CreatedAt:         start.Add(25 * time.Hour),
	}
}

func TestBuildMarkdownSections(t *testing.T) {
	md := BuildMarkdown(sampleAnalysis(), []store.Alert{{
		Title: "Elevated risk level detected", Severity: risk.RiskHigh,
		Message: "Bacterial counts climbing at the north inlet.",
	}})
	for _, want := range []string{
		"# Wastewater Risk Analysis Report",
		"**Risk level:** `high`",
		"| Average bacterial count | 1333.33 |",
		"## 7-Day Outlook",
		"| 2026-08-26 | high | 0.70 |",
		"Elevated risk level detected",
		"Processing time: 1500 ms",
		"s1, s2",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q\n%s", want, md)
		}
	}
}

func TestBuildMarkdownOmitsEmptySections(t *testing.T) {
	analysis := sampleAnalysis()
	analysis.Predictions = nil
	md := BuildMarkdown(analysis, nil)
	if strings.Contains(md, "## 7-Day Outlook") {
		t.Fatal("outlook section must be omitted without predictions")
	}
	if strings.Contains(md, "## Alerts") {
		t.Fatal("alerts section must be omitted without alerts")
	}
}

func TestBuildMarkdownDemoModelLabel(t *testing.T) {
	analysis := sampleAnalysis()
	analysis.ModelVersion = risk.DemoModelVersion
	md := BuildMarkdown(analysis, nil)
	if !strings.Contains(md, "demonstration mode") {
		t.Fatal("demo model version should be labeled")
	}
}

func TestBuildHTMLRendersTables(t *testing.T) {
	html, err := buildHTML(BuildMarkdown(sampleAnalysis(), nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<table>") {
		t.Fatal("GFM tables must render to <table>")
	}
	if !strings.Contains(html, "<h1") {
		t.Fatal("heading missing from rendered HTML")
	}
}
