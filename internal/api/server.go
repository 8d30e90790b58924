// Package api exposes the HTTP surface: sensor CRUD, readings ingest, risk
// analyses, alerts, the AI assistant, and file uploads.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquasense/aquasense/internal/inference"
	"github.com/aquasense/aquasense/internal/observability"
	"github.com/aquasense/aquasense/internal/report"
	"github.com/aquasense/aquasense/internal/risk"
	"github.com/aquasense/aquasense/internal/store"
	"github.com/aquasense/aquasense/internal/upload"
)

const maxUploadBytes = 32 << 20

type Server struct {
	store     *store.Store
	analyzer  *risk.Analyzer
	assistant *risk.Assistant
	uploads   *upload.Analyzer
	pdf       report.PDFRenderer
}

func NewServer(st *store.Store, analyzer *risk.Analyzer, assistant *risk.Assistant, uploads *upload.Analyzer, pdf report.PDFRenderer) http.Handler {
	s := &Server{
		store:     st,
		analyzer:  analyzer,
		assistant: assistant,
		uploads:   uploads,
		pdf:       pdf,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sensors", s.handleSensors)
	mux.HandleFunc("/api/sensors/", s.handleSensorSubtree)
	mux.HandleFunc("/api/analyses", s.handleAnalyses)
	mux.HandleFunc("/api/analyses/", s.handleAnalysisSubtree)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/alerts/", s.handleAlertByID)
	mux.HandleFunc("/api/ai/chat", s.handleChat)
	mux.HandleFunc("/api/ai/analyze-file", s.handleAnalyzeFile)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return withMetrics(mux)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// statusRecorder captures the response code for the request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		observability.ObserveHTTPRequest(routeLabel(r.URL.Path), strconv.Itoa(rec.status/100*100), time.Since(started))
	})
}

// routeLabel collapses IDs so the metric cardinality stays bounded.
func routeLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if i > 0 && len(p) > 0 && looksLikeID(p) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeID(segment string) bool {
	switch segment {
	case "sensors", "analyses", "alerts", "readings", "report", "report.pdf", "chat", "analyze-file", "stats", "api", "ai":
		return false
	}
	return true
}

// --- sensors ---

type createSensorRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sensors, err := s.store.ListSensors()
		if err != nil {
			log.Printf("api list_sensors_failed err=%v", err)
			writeError(w, 500, "failed to list sensors")
			return
		}
		writeJSON(w, 200, sensors)
	case http.MethodPost:
		var req createSensorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Location) == "" {
			writeError(w, 400, "name and location are required")
			return
		}
		sensor, err := s.store.CreateSensor(req.Name, req.Location, req.Type, req.Status)
		if err != nil {
			log.Printf("api create_sensor_failed err=%v", err)
			writeError(w, 500, "failed to create sensor")
			return
		}
		writeJSON(w, 201, sensor)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleSensorSubtree routes /api/sensors/{id} and /api/sensors/{id}/readings.
func (s *Server) handleSensorSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sensors/")
	parts := strings.SplitN(strings.TrimSuffix(rest, "/"), "/", 2)
	if parts[0] == "" {
		writeError(w, 400, "sensor id is required")
		return
	}
	sensorID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sensor, err := s.store.GetSensor(sensorID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, 404, "sensor not found")
			return
		}
		if err != nil {
			log.Printf("api get_sensor_failed id=%s err=%v", sensorID, err)
			writeError(w, 500, "failed to load sensor")
			return
		}
		writeJSON(w, 200, sensor)
		return
	}

	if parts[1] != "readings" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listReadings(w, r, sensorID)
	case http.MethodPost:
		s.createReading(w, r, sensorID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request, sensorID string) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, 400, "hours must be a positive integer")
			return
		}
		hours = parsed
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, 400, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if _, err := s.store.GetSensor(sensorID); errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "sensor not found")
		return
	}
	readings, err := s.store.ListSensorReadings(sensorID, since, limit)
	if err != nil {
		log.Printf("api list_readings_failed sensor=%s err=%v", sensorID, err)
		writeError(w, 500, "failed to list readings")
		return
	}
	writeJSON(w, 200, readings)
}

func (s *Server) createReading(w http.ResponseWriter, r *http.Request, sensorID string) {
	var input store.ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	reading, err := s.store.CreateReading(sensorID, input)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "sensor not found")
		return
	}
	if err != nil {
		log.Printf("api create_reading_failed sensor=%s err=%v", sensorID, err)
		writeError(w, 500, "failed to record reading")
		return
	}
	writeJSON(w, 201, reading)
}

// --- analyses ---

type analyzeRequest struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	SensorIDs []string  `json:"sensorIds"`
	Location  string    `json:"location"`
}

type analyzeResponse struct {
	Analysis store.Analysis `json:"analysis"`
	Alert    *store.Alert   `json:"alert,omitempty"`
}

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeError(w, 400, "limit must be a positive integer")
				return
			}
			limit = parsed
		}
		analyses, err := s.store.ListAnalyses(limit)
		if err != nil {
			log.Printf("api list_analyses_failed err=%v", err)
			writeError(w, 500, "failed to list analyses")
			return
		}
		writeJSON(w, 200, analyses)
	case http.MethodPost:
		s.runAnalysis(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || !req.EndDate.After(req.StartDate) {
		writeError(w, 400, "startDate and endDate must form a non-empty window")
		return
	}

	sensorIDs := req.SensorIDs
	location := strings.TrimSpace(req.Location)
	if len(sensorIDs) == 0 {
		sensors, err := s.store.ListSensors()
		if err != nil {
			log.Printf("api analysis_list_sensors_failed err=%v", err)
			writeError(w, 500, "failed to resolve sensors")
			return
		}
		for _, sensor := range sensors {
			sensorIDs = append(sensorIDs, sensor.ID)
			if location == "" {
				location = sensor.Location
			}
		}
	}
	if location == "" {
		location = "monitored area"
	}

	started := time.Now()
	analysis, alert, err := s.executeAnalysis(r.Context(), sensorIDs, location, risk.Window{Start: req.StartDate, End: req.EndDate})
	if err != nil {
		observability.ObserveAnalysis(observability.ResultError, time.Since(started))
		s.writeAnalysisError(w, err)
		return
	}
	observability.ObserveAnalysis(observability.ResultSuccess, time.Since(started))
	writeJSON(w, 201, analyzeResponse{Analysis: analysis, Alert: alert})
}

func (s *Server) executeAnalysis(ctx context.Context, sensorIDs []string, location string, window risk.Window) (store.Analysis, *store.Alert, error) {
	rows, err := s.store.ReadingsInWindow(sensorIDs, window.Start, window.End)
	if err != nil {
		return store.Analysis{}, nil, fmt.Errorf("load readings: %w", err)
	}
	readings := make([]risk.Reading, 0, len(rows))
	for _, row := range rows {
		readings = append(readings, row.RiskReading())
	}

	result, err := s.analyzer.Analyze(ctx, readings, sensorIDs, location, window)
	if err != nil {
		return store.Analysis{}, nil, err
	}

	persisted, err := s.store.CreateAnalysis(result)
	if err != nil {
		return store.Analysis{}, nil, fmt.Errorf("persist analysis: %w", err)
	}

	var alert *store.Alert
	if draft, ok := risk.DeriveAlert(result); ok {
		created, err := s.store.CreateAlert(persisted.ID, draft)
		if err != nil {
			// The analysis itself succeeded; losing the alert row is logged,
			// not surfaced as a request failure.
			log.Printf("api alert_persist_failed analysis=%s err=%v", persisted.ID, err)
		} else {
			alert = &created
		}
	}
	return persisted, alert, nil
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	if errors.Is(err, risk.ErrNoDataInRange) {
		writeError(w, 404, "no readings in the requested window")
		return
	}
	var noModel *inference.NoModelAvailableError
	if errors.As(err, &noModel) {
		writeError(w, 502, cascadeFailureMessage(noModel))
		return
	}
	log.Printf("api analysis_failed err=%v", err)
	writeError(w, 500, "analysis failed")
}

// cascadeFailureMessage summarizes which candidates were tried and why each
// failed, without leaking raw backend errors to clients.
func cascadeFailureMessage(e *inference.NoModelAvailableError) string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Model, attemptReason(a.Err)))
	}
	return "all model candidates failed: " + strings.Join(parts, ", ")
}

func attemptReason(err error) string {
	switch {
	case errors.Is(err, inference.ErrEmptyResponse):
		return "empty response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "backend error"
	}
}

// handleAnalysisSubtree routes /api/analyses/{id}, .../report, .../report.pdf.
func (s *Server) handleAnalysisSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/analyses/")
	parts := strings.SplitN(strings.TrimSuffix(rest, "/"), "/", 2)
	if parts[0] == "" {
		writeError(w, 400, "analysis id is required")
		return
	}
	analysis, err := s.store.GetAnalysis(parts[0])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "analysis not found")
		return
	}
	if err != nil {
		log.Printf("api get_analysis_failed id=%s err=%v", parts[0], err)
		writeError(w, 500, "failed to load analysis")
		return
	}

	if len(parts) == 1 {
		writeJSON(w, 200, analysis)
		return
	}
	switch parts[1] {
	case "report":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(s.renderReport(analysis)))
	case "report.pdf":
		s.serveReportPDF(w, r, analysis)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) renderReport(analysis store.Analysis) string {
	alerts, err := s.store.ListAlertsByAnalysis(analysis.ID)
	if err != nil {
		log.Printf("api report_alerts_failed analysis=%s err=%v", analysis.ID, err)
		alerts = nil
	}
	return report.BuildMarkdown(analysis, alerts)
}

func (s *Server) serveReportPDF(w http.ResponseWriter, r *http.Request, analysis store.Analysis) {
	if s.pdf == nil {
		writeError(w, 503, "pdf renderer unavailable")
		return
	}
	pdf, err := s.pdf.Render(r.Context(), s.renderReport(analysis))
	if err != nil {
		log.Printf("api render_pdf_failed analysis=%s err=%v", analysis.ID, err)
		writeError(w, 500, "failed to render pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "risk-analysis-"+analysis.ID+".pdf"))
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}

// --- alerts ---

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var acknowledged *bool
	if raw := r.URL.Query().Get("acknowledged"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, 400, "acknowledged must be a boolean")
			return
		}
		acknowledged = &parsed
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, 400, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	alerts, err := s.store.ListAlerts(acknowledged, limit)
	if err != nil {
		log.Printf("api list_alerts_failed err=%v", err)
		writeError(w, 500, "failed to list alerts")
		return
	}
	writeJSON(w, 200, alerts)
}

type acknowledgeRequest struct {
	Acknowledged *bool `json:"acknowledged"`
}

func (s *Server) handleAlertByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/alerts/"), "/")
	if id == "" {
		writeError(w, 400, "alert id is required")
		return
	}
	switch r.Method {
	case http.MethodGet:
		alert, err := s.store.GetAlert(id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, 404, "alert not found")
			return
		}
		if err != nil {
			log.Printf("api get_alert_failed id=%s err=%v", id, err)
			writeError(w, 500, "failed to load alert")
			return
		}
		writeJSON(w, 200, alert)
	case http.MethodPatch:
		var req acknowledgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Acknowledged == nil {
			writeError(w, 400, "acknowledged field is required")
			return
		}
		alert, err := s.store.AcknowledgeAlert(id, *req.Acknowledged)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, 404, "alert not found")
			return
		}
		if err != nil {
			log.Printf("api acknowledge_alert_failed id=%s err=%v", id, err)
			writeError(w, 500, "failed to update alert")
			return
		}
		writeJSON(w, 200, alert)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- assistant ---

type chatRequest struct {
	Message     string             `json:"message"`
	History     []risk.ChatMessage `json:"history"`
	FileContext *risk.FileContext  `json:"fileContext"`
}

type chatResponse struct {
	Response   string         `json:"response"`
	Structured map[string]any `json:"analysis,omitempty"`
	Model      string         `json:"modelUsed"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, 400, "message is required")
		return
	}
	result, err := s.assistant.Respond(r.Context(), req.Message, req.History, req.FileContext)
	if err != nil {
		var noModel *inference.NoModelAvailableError
		if errors.As(err, &noModel) {
			writeError(w, 502, cascadeFailureMessage(noModel))
			return
		}
		log.Printf("api chat_failed err=%v", err)
		writeError(w, 500, "chat failed")
		return
	}
	writeJSON(w, 200, chatResponse{Response: result.Response, Structured: result.Structured, Model: result.Model})
}

// --- file uploads ---

func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, 400, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, 400, "file field is required")
		return
	}
	defer file.Close()

	insight, err := s.uploads.Analyze(r.Context(), file)
	if err != nil {
		if errors.Is(err, upload.ErrMalformedUpload) {
			writeError(w, 400, "file is not a readable spreadsheet")
			return
		}
		var noModel *inference.NoModelAvailableError
		if errors.As(err, &noModel) {
			writeError(w, 502, cascadeFailureMessage(noModel))
			return
		}
		log.Printf("api analyze_file_failed err=%v", err)
		writeError(w, 500, "file analysis failed")
		return
	}
	writeJSON(w, 200, insight)
}

// --- stats & health ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		log.Printf("api stats_failed err=%v", err)
		writeError(w, 500, "failed to compute stats")
		return
	}
	writeJSON(w, 200, stats)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{
		"status":     "ok",
		"aiBackend":  s.analyzer.Configured(),
		"serverTime": time.Now().UTC().Format(time.RFC3339),
	})
}
