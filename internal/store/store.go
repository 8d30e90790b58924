package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/aquasense/aquasense/internal/risk"
)

// ErrNotFound reports a lookup by ID that matched no row.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS sensors (
	sensor_id  TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	location   TEXT NOT NULL,
	type       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sensor_readings (
	reading_id       TEXT PRIMARY KEY,
	sensor_id        TEXT NOT NULL,
	timestamp        TEXT NOT NULL,
	temperature      REAL,
	ph               REAL,
	turbidity        REAL,
	dissolved_oxygen REAL,
	conductivity     REAL,
	bacterial_count  REAL,
	viral_load       REAL,
	metadata         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_readings_sensor_ts ON sensor_readings (sensor_id, timestamp);

CREATE TABLE IF NOT EXISTS analyses (
	analysis_id         TEXT PRIMARY KEY,
	start_date          TEXT NOT NULL,
	end_date            TEXT NOT NULL,
	sensor_ids          TEXT NOT NULL DEFAULT '[]',
	risk_level          TEXT NOT NULL,
	confidence          REAL NOT NULL,
	summary             TEXT NOT NULL,
	predictions         TEXT NOT NULL DEFAULT '[]',
	avg_bacterial_count REAL NOT NULL DEFAULT 0,
	avg_viral_load      REAL NOT NULL DEFAULT 0,
	trend               TEXT NOT NULL DEFAULT 'stable',
	model_version       TEXT NOT NULL DEFAULT '',
	processing_time_ms  INTEGER NOT NULL DEFAULT 0,
	created_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	alert_id        TEXT PRIMARY KEY,
	analysis_id     TEXT NOT NULL DEFAULT '',
	type            TEXT NOT NULL,
	severity        TEXT NOT NULL,
	title           TEXT NOT NULL,
	message         TEXT NOT NULL,
	acknowledged    INTEGER NOT NULL DEFAULT 0,
	acknowledged_at TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);
`

// Store is the SQLite-backed persistence collaborator. The pipeline only ever
// appends Analysis and Alert rows; the single shared mutation is the alert
// acknowledged flag.
type Store struct {
	db *sqlx.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// --- helpers ---

// timestampLayout is fixed-width so the TEXT columns compare and sort
// correctly byte-wise. RFC3339Nano would trim trailing fractional zeros and
// make "06:00:00Z" sort after "06:00:00.5Z".
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// --- sensors ---

func (s *Store) CreateSensor(name, location, sensorType, status string) (Sensor, error) {
	if status == "" {
		status = "active"
	}
	now := time.Now().UTC()
	sensor := Sensor{
		ID:        uuid.NewString(),
		Name:      name,
		Location:  location,
		Type:      sensorType,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(`INSERT INTO sensors (sensor_id, name, location, type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sensor.ID, sensor.Name, sensor.Location, sensor.Type, sensor.Status,
		timeToString(sensor.CreatedAt), timeToString(sensor.UpdatedAt))
	if err != nil {
		return Sensor{}, err
	}
	return sensor, nil
}

func (s *Store) GetSensor(id string) (Sensor, error) {
	row := s.db.QueryRow(`SELECT sensor_id, name, location, type, status, created_at, updated_at
		FROM sensors WHERE sensor_id = ?`, id)
	sensor, err := scanSensor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Sensor{}, ErrNotFound
	}
	return sensor, err
}

func (s *Store) ListSensors() ([]Sensor, error) {
	rows, err := s.db.Query(`SELECT sensor_id, name, location, type, status, created_at, updated_at
		FROM sensors ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sensors := []Sensor{}
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(row rowScanner) (Sensor, error) {
	var sensor Sensor
	var createdAt, updatedAt string
	if err := row.Scan(&sensor.ID, &sensor.Name, &sensor.Location, &sensor.Type, &sensor.Status, &createdAt, &updatedAt); err != nil {
		return Sensor{}, err
	}
	sensor.CreatedAt = parseTime(createdAt)
	sensor.UpdatedAt = parseTime(updatedAt)
	return sensor, nil
}

// --- readings ---

func (s *Store) CreateReading(sensorID string, input ReadingInput) (SensorReading, error) {
	if _, err := s.GetSensor(sensorID); err != nil {
		return SensorReading{}, err
	}
	ts := input.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	reading := SensorReading{
		ID:              uuid.NewString(),
		SensorID:        sensorID,
		Timestamp:       ts,
		Temperature:     input.Temperature,
		PH:              input.PH,
		Turbidity:       input.Turbidity,
		DissolvedOxygen: input.DissolvedOxygen,
		Conductivity:    input.Conductivity,
		BacterialCount:  input.BacterialCount,
		ViralLoad:       input.ViralLoad,
		Metadata:        input.Metadata,
	}
	_, err := s.db.Exec(`INSERT INTO sensor_readings
		(reading_id, sensor_id, timestamp, temperature, ph, turbidity, dissolved_oxygen, conductivity, bacterial_count, viral_load, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.ID, reading.SensorID, timeToString(reading.Timestamp),
		nullFloat(reading.Temperature), nullFloat(reading.PH), nullFloat(reading.Turbidity),
		nullFloat(reading.DissolvedOxygen), nullFloat(reading.Conductivity),
		nullFloat(reading.BacterialCount), nullFloat(reading.ViralLoad), reading.Metadata)
	if err != nil {
		return SensorReading{}, err
	}
	return reading, nil
}

// ListSensorReadings returns a sensor's readings since the given time, newest
// first, capped to limit.
func (s *Store) ListSensorReadings(sensorID string, since time.Time, limit int) ([]SensorReading, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT reading_id, sensor_id, timestamp, temperature, ph, turbidity, dissolved_oxygen, conductivity, bacterial_count, viral_load, metadata
		FROM sensor_readings WHERE sensor_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC LIMIT ?`, sensorID, timeToString(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// ReadingsInWindow returns readings for the sensor set within [start, end],
// ascending by timestamp, as the analysis pipeline expects.
func (s *Store) ReadingsInWindow(sensorIDs []string, start, end time.Time) ([]SensorReading, error) {
	if len(sensorIDs) == 0 {
		return []SensorReading{}, nil
	}
	query, args, err := sqlx.In(`SELECT reading_id, sensor_id, timestamp, temperature, ph, turbidity, dissolved_oxygen, conductivity, bacterial_count, viral_load, metadata
		FROM sensor_readings WHERE sensor_id IN (?) AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`, sensorIDs, timeToString(start), timeToString(end))
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

func collectReadings(rows *sql.Rows) ([]SensorReading, error) {
	readings := []SensorReading{}
	for rows.Next() {
		var r SensorReading
		var ts string
		var temperature, ph, turbidity, dissolvedOxygen, conductivity, bacterialCount, viralLoad sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.SensorID, &ts, &temperature, &ph, &turbidity,
			&dissolvedOxygen, &conductivity, &bacterialCount, &viralLoad, &r.Metadata); err != nil {
			return nil, err
		}
		r.Timestamp = parseTime(ts)
		r.Temperature = floatPtr(temperature)
		r.PH = floatPtr(ph)
		r.Turbidity = floatPtr(turbidity)
		r.DissolvedOxygen = floatPtr(dissolvedOxygen)
		r.Conductivity = floatPtr(conductivity)
		r.BacterialCount = floatPtr(bacterialCount)
		r.ViralLoad = floatPtr(viralLoad)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// --- analyses ---

// CreateAnalysis persists one finished orchestration run.
func (s *Store) CreateAnalysis(a risk.Analysis) (Analysis, error) {
	record := Analysis{
		ID:                uuid.NewString(),
		StartDate:         a.Window.Start,
		EndDate:           a.Window.End,
		SensorIDs:         a.SensorIDs,
		RiskLevel:         a.Determination.RiskLevel,
		Confidence:        a.Determination.Confidence,
		Summary:           a.Determination.Summary,
		Predictions:       a.Determination.Predictions,
		AvgBacterialCount: a.AvgBacterialCount,
		AvgViralLoad:      a.AvgViralLoad,
		Trend:             a.Determination.Trend,
		ModelVersion:      a.ModelVersion,
		ProcessingTimeMS:  a.ProcessingTime.Milliseconds(),
		CreatedAt:         time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO analyses
		(analysis_id, start_date, end_date, sensor_ids, risk_level, confidence, summary, predictions, avg_bacterial_count, avg_viral_load, trend, model_version, processing_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, timeToString(record.StartDate), timeToString(record.EndDate),
		marshalJSON(record.SensorIDs), string(record.RiskLevel), record.Confidence,
		record.Summary, marshalJSON(record.Predictions), record.AvgBacterialCount,
		record.AvgViralLoad, string(record.Trend), record.ModelVersion,
		record.ProcessingTimeMS, timeToString(record.CreatedAt))
	if err != nil {
		return Analysis{}, err
	}
	return record, nil
}

func (s *Store) GetAnalysis(id string) (Analysis, error) {
	row := s.db.QueryRow(`SELECT analysis_id, start_date, end_date, sensor_ids, risk_level, confidence, summary, predictions, avg_bacterial_count, avg_viral_load, trend, model_version, processing_time_ms, created_at
		FROM analyses WHERE analysis_id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

func (s *Store) ListAnalyses(limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT analysis_id, start_date, end_date, sensor_ids, risk_level, confidence, summary, predictions, avg_bacterial_count, avg_viral_load, trend, model_version, processing_time_ms, created_at
		FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	analyses := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var startDate, endDate, createdAt, sensorIDsJSON, predictionsJSON, riskLevel, trend string
	if err := row.Scan(&a.ID, &startDate, &endDate, &sensorIDsJSON, &riskLevel, &a.Confidence,
		&a.Summary, &predictionsJSON, &a.AvgBacterialCount, &a.AvgViralLoad, &trend,
		&a.ModelVersion, &a.ProcessingTimeMS, &createdAt); err != nil {
		return Analysis{}, err
	}
	a.StartDate = parseTime(startDate)
	a.EndDate = parseTime(endDate)
	a.CreatedAt = parseTime(createdAt)
	a.RiskLevel = risk.RiskLevel(riskLevel)
	a.Trend = risk.Trend(trend)
	_ = json.Unmarshal([]byte(sensorIDsJSON), &a.SensorIDs)
	_ = json.Unmarshal([]byte(predictionsJSON), &a.Predictions)
	return a, nil
}

// --- alerts ---

func (s *Store) CreateAlert(analysisID string, draft risk.AlertDraft) (Alert, error) {
	alert := Alert{
		ID:         uuid.NewString(),
		AnalysisID: analysisID,
		Type:       draft.Type,
		Severity:   draft.Severity,
		Title:      draft.Title,
		Message:    draft.Message,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO alerts (alert_id, analysis_id, type, severity, title, message, acknowledged, acknowledged_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, '', ?)`,
		alert.ID, alert.AnalysisID, string(alert.Type), string(alert.Severity),
		alert.Title, alert.Message, timeToString(alert.CreatedAt))
	if err != nil {
		return Alert{}, err
	}
	return alert, nil
}

// ListAlerts filters by acknowledgement when the pointer is non-nil.
func (s *Store) ListAlerts(acknowledged *bool, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT alert_id, analysis_id, type, severity, title, message, acknowledged, acknowledged_at, created_at
		FROM alerts`
	args := []any{}
	if acknowledged != nil {
		query += ` WHERE acknowledged = ?`
		args = append(args, boolToInt(*acknowledged))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alerts := []Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ListAlertsByAnalysis returns every alert derived from one analysis, newest
// first.
func (s *Store) ListAlertsByAnalysis(analysisID string) ([]Alert, error) {
	rows, err := s.db.Query(`SELECT alert_id, analysis_id, type, severity, title, message, acknowledged, acknowledged_at, created_at
		FROM alerts WHERE analysis_id = ? ORDER BY created_at DESC`, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alerts := []Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *Store) GetAlert(id string) (Alert, error) {
	row := s.db.QueryRow(`SELECT alert_id, analysis_id, type, severity, title, message, acknowledged, acknowledged_at, created_at
		FROM alerts WHERE alert_id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, ErrNotFound
	}
	return a, err
}

// AcknowledgeAlert toggles the acknowledged flag; the only mutation alerts
// ever receive.
func (s *Store) AcknowledgeAlert(id string, acknowledged bool) (Alert, error) {
	ackAt := ""
	if acknowledged {
		ackAt = timeToString(time.Now().UTC())
	}
	res, err := s.db.Exec(`UPDATE alerts SET acknowledged = ?, acknowledged_at = ? WHERE alert_id = ?`,
		boolToInt(acknowledged), ackAt, id)
	if err != nil {
		return Alert{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Alert{}, ErrNotFound
	}
	return s.GetAlert(id)
}

func scanAlert(row rowScanner) (Alert, error) {
	var a Alert
	var alertType, severity, ackAt, createdAt string
	var ack int
	if err := row.Scan(&a.ID, &a.AnalysisID, &alertType, &severity, &a.Title, &a.Message, &ack, &ackAt, &createdAt); err != nil {
		return Alert{}, err
	}
	a.Type = risk.AlertType(alertType)
	a.Severity = risk.RiskLevel(severity)
	a.Acknowledged = ack != 0
	if ackAt != "" {
		t := parseTime(ackAt)
		a.AcknowledgedAt = &t
	}
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- stats ---

func (s *Store) Stats() (Stats, error) {
	stats := Stats{CurrentRiskLevel: risk.RiskLow}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sensors`).Scan(&stats.TotalSensors); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sensors WHERE status = 'active'`).Scan(&stats.ActiveSensors); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sensor_readings`).Scan(&stats.TotalReadings); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE acknowledged = 0`).Scan(&stats.ActiveAlerts); err != nil {
		return Stats{}, err
	}
	var riskLevel, createdAt string
	err := s.db.QueryRow(`SELECT risk_level, created_at FROM analyses ORDER BY created_at DESC LIMIT 1`).Scan(&riskLevel, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No analysis yet: report the low default.
	case err != nil:
		return Stats{}, err
	default:
		stats.CurrentRiskLevel = risk.RiskLevel(riskLevel)
		t := parseTime(createdAt)
		stats.LastAnalysisDate = &t
	}
	return stats, nil
}
