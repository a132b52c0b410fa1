package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"httpmonitor/internal/analytics"
	"httpmonitor/internal/metrics"
	"httpmonitor/internal/models"
	"httpmonitor/internal/section"
	"httpmonitor/internal/sink"
	"httpmonitor/internal/system"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodyBytes = 1 << 20

	// maxClockSkew насколько время события может опережать часы сервера
	maxClockSkew = 5 * time.Second
)

// HistoryReader история алертов во внешнем хранилище
type HistoryReader interface {
	GetRecentAlerts(ctx context.Context, limit int) ([]models.AlertEvent, error)
	Ping(ctx context.Context) error
	GetStats() map[string]interface{}
}

// Handler обработчик HTTP запросов
type Handler struct {
	collector    *analytics.TrafficCollector
	scheduler    *analytics.MonitorScheduler
	memory       *sink.Memory
	history      HistoryReader
	defaultLimit int
	hostStats    func() (system.HostStats, error)
	now          func() time.Time
}

// NewHandler создает новый обработчик
func NewHandler(
	collector *analytics.TrafficCollector, scheduler *analytics.MonitorScheduler,
	memory *sink.Memory, defaultLimit int,
) *Handler {
	return &Handler{
		collector:    collector,
		scheduler:    scheduler,
		memory:       memory,
		defaultLimit: defaultLimit,
		hostStats:    system.Collect,
		now:          time.Now,
	}
}

// WithHistory подключает чтение истории из Redis
func (h *Handler) WithHistory(history HistoryReader) *Handler {
	h.history = history
	return h
}

// Router маршруты API
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(instrument)

	router.HandleFunc("/events", h.SubmitEvent).Methods(http.MethodPost)
	router.HandleFunc("/events/batch", h.BatchSubmitEvents).Methods(http.MethodPost)
	router.HandleFunc("/sections", h.GetSections).Methods(http.MethodGet)
	router.HandleFunc("/alerts", h.GetAlerts).Methods(http.MethodGet)
	router.HandleFunc("/alerts/history", h.GetAlertHistory).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)

	// Prometheus metrics endpoint
	router.Handle("/prometheus", promhttp.Handler())

	return router
}

// SubmitEvent обрабатывает POST /events
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req models.HTTPRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Валидация
	if err := h.validate(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event := h.ingest(req)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"section": event.Section,
	})
}

// BatchSubmitEvents обрабатывает POST /events/batch
func (h *Handler) BatchSubmitEvents(w http.ResponseWriter, r *http.Request) {
	var batch []models.HTTPRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	accepted := 0
	for _, req := range batch {
		if err := h.validate(&req); err != nil {
			continue
		}
		h.ingest(req)
		accepted++
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "accepted",
		"total":    len(batch),
		"accepted": accepted,
	})
}

// validate проверяет запрос и подставляет время, если оно не указано.
// Событие из будущего сдвинуло бы горизонт окна трафика вперед навсегда.
func (h *Handler) validate(req *models.HTTPRequest) error {
	if req.Host == "" {
		return errors.New("host is required")
	}

	now := h.now()
	if req.Timestamp.IsZero() {
		req.Timestamp = now
		return nil
	}
	if req.Timestamp.After(now.Add(maxClockSkew)) {
		return fmt.Errorf("timestamp %s is ahead of server time", req.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// ingest превращает проверенный запрос в событие и передает коллектору
func (h *Handler) ingest(req models.HTTPRequest) models.TrafficEvent {
	event := models.TrafficEvent{
		Section:    section.Extract(req.Host, req.Path),
		Bytes:      req.Bytes,
		ObservedAt: req.Timestamp,
	}
	h.collector.Ingest(event)

	metrics.EventsIngested.Inc()
	metrics.BytesIngested.Add(float64(req.Bytes))
	return event
}

// GetSections обрабатывает GET /sections
func (h *Handler) GetSections(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	report, ok := h.memory.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sections": []models.SectionStats{},
		})
		return
	}

	sections := report.Sections
	if len(sections) > limit {
		sections = sections[:limit]
	}
	if sections == nil {
		sections = []models.SectionStats{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": report.GeneratedAt,
		"traffic":      report.Traffic,
		"status":       report.Status,
		"total":        len(report.Sections),
		"sections":     sections,
	})
}

// GetAlerts обрабатывает GET /alerts
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": h.scheduler.AlertStatus(),
		"alerts": h.memory.Alerts(),
	})
}

// GetAlertHistory обрабатывает GET /alerts/history
func (h *Handler) GetAlertHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history storage is disabled", http.StatusServiceUnavailable)
		return
	}

	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	alerts, err := h.history.GetRecentAlerts(r.Context(), limit)
	if err != nil {
		metrics.RedisOperations.WithLabelValues("get_alerts", "error").Inc()
		http.Error(w, "Failed to retrieve alerts", http.StatusInternalServerError)
		return
	}
	metrics.RedisOperations.WithLabelValues("get_alerts", "success").Inc()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// HealthCheck обрабатывает GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state := h.scheduler.State()
	status := "healthy"
	httpStatus := http.StatusOK

	if state != analytics.Running {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    status,
		"scheduler": state.String(),
		"timestamp": time.Now(),
	}

	// Проверяем Redis
	if h.history != nil {
		redisOK := h.history.Ping(r.Context()) == nil
		response["redis"] = redisOK
		if !redisOK {
			response["status"] = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, httpStatus, response)
}

// GetStats обрабатывает GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"collector":    h.collector.Stats(),
		"scheduler":    h.scheduler.State().String(),
		"alert_status": h.scheduler.AlertStatus(),
		"timestamp":    time.Now(),
	}

	if h.history != nil {
		response["redis"] = h.history.GetStats()
	}

	if hostStats, err := h.hostStats(); err == nil {
		response["host"] = hostStats
	} else {
		response["host_error"] = err.Error()
	}

	writeJSON(w, http.StatusOK, response)
}

// limit разбирает ?limit=, по умолчанию defaultLimit
func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
