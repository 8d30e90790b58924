package store

import (
	"time"

	"github.com/aquasense/aquasense/internal/risk"
)

type Sensor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SensorReading is immutable once created. Nil numeric fields mean the sensor
// did not report that channel.
type SensorReading struct {
	ID              string    `json:"id"`
	SensorID        string    `json:"sensorId"`
	Timestamp       time.Time `json:"timestamp"`
	Temperature     *float64  `json:"temperature,omitempty"`
	PH              *float64  `json:"ph,omitempty"`
	Turbidity       *float64  `json:"turbidity,omitempty"`
	DissolvedOxygen *float64  `json:"dissolvedOxygen,omitempty"`
	Conductivity    *float64  `json:"conductivity,omitempty"`
	BacterialCount  *float64  `json:"bacterialCount,omitempty"`
	ViralLoad       *float64  `json:"viralLoad,omitempty"`
	Metadata        string    `json:"metadata,omitempty"`
}

// RiskReading projects the persisted row onto the analysis pipeline's value
// type.
func (r SensorReading) RiskReading() risk.Reading {
	return risk.Reading{
		Timestamp:       r.Timestamp,
		Temperature:     r.Temperature,
		PH:              r.PH,
		Turbidity:       r.Turbidity,
		DissolvedOxygen: r.DissolvedOxygen,
		Conductivity:    r.Conductivity,
		BacterialCount:  r.BacterialCount,
		ViralLoad:       r.ViralLoad,
	}
}

// Analysis is created exactly once per orchestration run and never mutated.
type Analysis struct {
	ID                string            `json:"id"`
	StartDate         time.Time         `json:"startDate"`
	EndDate           time.Time         `json:"endDate"`
	SensorIDs         []string          `json:"sensorIds"`
	RiskLevel         risk.RiskLevel    `json:"riskLevel"`
	Confidence        float64           `json:"confidence"`
	Summary           string            `json:"summary"`
	Predictions       []risk.Prediction `json:"predictions"`
	AvgBacterialCount float64           `json:"avgBacterialCount"`
	AvgViralLoad      float64           `json:"avgViralLoad"`
	Trend             risk.Trend        `json:"trend"`
	ModelVersion      string            `json:"modelVersion"`
	ProcessingTimeMS  int64             `json:"processingTime"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Alert is mutated only to toggle acknowledgement.
type Alert struct {
	ID             string         `json:"id"`
	AnalysisID     string         `json:"analysisId,omitempty"`
	Type           risk.AlertType `json:"type"`
	Severity       risk.RiskLevel `json:"severity"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Acknowledged   bool           `json:"acknowledged"`
	AcknowledgedAt *time.Time     `json:"acknowledgedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

type Stats struct {
	TotalSensors     int            `json:"totalSensors"`
	ActiveSensors    int            `json:"activeSensors"`
	TotalReadings    int            `json:"totalReadings"`
	CurrentRiskLevel risk.RiskLevel `json:"currentRiskLevel"`
	ActiveAlerts     int            `json:"activeAlerts"`
	LastAnalysisDate *time.Time     `json:"lastAnalysisDate,omitempty"`
}

// ReadingInput is the mutable half of a SensorReading create.
type ReadingInput struct {
	Timestamp       time.Time `json:"timestamp"`
	Temperature     *float64  `json:"temperature"`
	PH              *float64  `json:"ph"`
	Turbidity       *float64  `json:"turbidity"`
	DissolvedOxygen *float64  `json:"dissolvedOxygen"`
	Conductivity    *float64  `json:"conductivity"`
	BacterialCount  *float64  `json:"bacterialCount"`
	ViralLoad       *float64  `json:"viralLoad"`
	Metadata        string    `json:"metadata"`
}
