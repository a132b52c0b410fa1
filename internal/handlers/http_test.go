package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"httpmonitor/internal/analytics"
	"httpmonitor/internal/models"
	"httpmonitor/internal/sink"
	"httpmonitor/internal/system"
	"httpmonitor/internal/test"
)

type historyMock struct {
	alerts  []models.AlertEvent
	err     error
	pingErr error
}

func (m *historyMock) GetRecentAlerts(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.alerts) > limit {
		return m.alerts[:limit], nil
	}
	return m.alerts, nil
}

func (m *historyMock) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *historyMock) GetStats() map[string]interface{} {
	return map[string]interface{}{"total_conns": 1}
}

type fixture struct {
	handler   *Handler
	collector *analytics.TrafficCollector
	scheduler *analytics.MonitorScheduler
	memory    *sink.Memory
}

func newFixture(t *testing.T, start bool) *fixture {
	t.Helper()

	collector, err := analytics.NewTrafficCollector(2*time.Minute, nil)
	test.FailOnError(t, err)
	engine, err := analytics.NewAlertEngine(1000, nil)
	test.FailOnError(t, err)
	memory, err := sink.NewMemory(10)
	test.FailOnError(t, err)
	scheduler, err := analytics.NewMonitorScheduler(collector, engine, memory, time.Hour, 2*time.Minute)
	test.FailOnError(t, err)

	if start {
		test.FailOnError(t, scheduler.Start(context.Background()))
	}
	t.Cleanup(scheduler.Stop)

	h := NewHandler(collector, scheduler, memory, 2)
	h.hostStats = func() (system.HostStats, error) {
		return system.HostStats{Hostname: "test"}, nil
	}
	return &fixture{handler: h, collector: collector, scheduler: scheduler, memory: memory}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	test.FailOnError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSubmitEvent(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/events",
		`{"host":"http://my.site.com","path":"/pages/create?x=1","method":"POST","bytes":123}`)

	test.Equals(t, http.StatusAccepted, rec.Code, "status code")
	body := decode(t, rec)
	test.Equals(t, "http://my.site.com/pages", body["section"], "derived section")

	stats := f.collector.Stats()
	test.Equals(t, uint64(1), stats.EventsIngested, "events ingested")
	test.Equals(t, 1, stats.SectionsTracked, "sections tracked")
}

func TestSubmitEventValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"host":`},
		{"missing host", `{"path":"/a","bytes":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, false)
			rec := f.do(http.MethodPost, "/events", tc.body)
			test.Equals(t, http.StatusBadRequest, rec.Code, "status code")
			test.Equals(t, uint64(0), f.collector.Stats().EventsIngested, "nothing ingested")
		})
	}
}

func TestBatchSubmitSkipsEventsWithoutHost(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/events/batch", `[
		{"host":"a.com","path":"/x","bytes":10},
		{"path":"/y","bytes":10},
		{"host":"b.com","path":"/z","bytes":10}
	]`)

	test.Equals(t, http.StatusAccepted, rec.Code, "status code")
	body := decode(t, rec)
	test.Equals(t, float64(3), body["total"], "total")
	test.Equals(t, float64(2), body["accepted"], "accepted")
	test.Equals(t, uint64(2), f.collector.Stats().EventsIngested, "events ingested")
}

func TestGetSectionsBeforeFirstReport(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodGet, "/sections", "")

	test.Equals(t, http.StatusOK, rec.Code, "status code")
	body := decode(t, rec)
	test.Equals(t, []interface{}{}, body["sections"], "empty sections")
}

func TestGetSectionsLimit(t *testing.T) {
	f := newFixture(t, false)
	f.memory.Report(models.Report{
		Sections: []models.SectionStats{
			{Section: "a.com/x", Hits: 3},
			{Section: "a.com/y", Hits: 2},
			{Section: "a.com/z", Hits: 1},
		},
		Traffic: 42,
		Status:  models.OverThreshold,
	})

	rec := f.do(http.MethodGet, "/sections", "")
	body := decode(t, rec)
	test.Equals(t, 2, len(body["sections"].([]interface{})), "default limit")
	test.Equals(t, float64(3), body["total"], "total sections")
	test.Equals(t, "over_threshold", body["status"], "status")

	rec = f.do(http.MethodGet, "/sections?limit=1", "")
	body = decode(t, rec)
	sections := body["sections"].([]interface{})
	test.Equals(t, 1, len(sections), "explicit limit")
	test.Equals(t, "a.com/x", sections[0].(map[string]interface{})["section"], "top section")

	rec = f.do(http.MethodGet, "/sections?limit=0", "")
	test.Equals(t, http.StatusBadRequest, rec.Code, "invalid limit")
}

func TestGetAlerts(t *testing.T) {
	f := newFixture(t, false)
	triggeredAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.memory.Report(models.Report{
		Status: models.OverThreshold,
		Alert:  &models.AlertEvent{Status: models.OverThreshold, Traffic: 5000, TriggeredAt: triggeredAt},
	})

	rec := f.do(http.MethodGet, "/alerts", "")

	test.Equals(t, http.StatusOK, rec.Code, "status code")
	var body struct {
		Status models.AlertStatus  `json:"status"`
		Alerts []models.AlertEvent `json:"alerts"`
	}
	test.FailOnError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// статус берется у планировщика, тиков еще не было
	test.Equals(t, models.NoAlert, body.Status, "scheduler status")
	test.Equals(t, 1, len(body.Alerts), "alerts count")
	test.Equals(t, uint64(5000), body.Alerts[0].Traffic, "alert traffic")
	test.True(t, body.Alerts[0].TriggeredAt.Equal(triggeredAt), "alert time")
}

func TestGetAlertHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, false)
		rec := f.do(http.MethodGet, "/alerts/history", "")
		test.Equals(t, http.StatusServiceUnavailable, rec.Code, "status code")
	})

	t.Run("enabled", func(t *testing.T) {
		f := newFixture(t, false)
		f.handler.WithHistory(&historyMock{alerts: []models.AlertEvent{
			{Status: models.UnderThreshold, Traffic: 10},
			{Status: models.OverThreshold, Traffic: 2000},
			{Status: models.UnderThreshold, Traffic: 5},
		}})

		rec := f.do(http.MethodGet, "/alerts/history", "")
		test.Equals(t, http.StatusOK, rec.Code, "status code")
		body := decode(t, rec)
		test.Equals(t, float64(2), body["count"], "default limit applied")
	})

	t.Run("storage error", func(t *testing.T) {
		f := newFixture(t, false)
		f.handler.WithHistory(&historyMock{err: errors.New("boom")})

		rec := f.do(http.MethodGet, "/alerts/history", "")
		test.Equals(t, http.StatusInternalServerError, rec.Code, "status code")
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		f := newFixture(t, true)
		rec := f.do(http.MethodGet, "/health", "")
		test.Equals(t, http.StatusOK, rec.Code, "status code")
		body := decode(t, rec)
		test.Equals(t, "healthy", body["status"], "status")
		test.Equals(t, "running", body["scheduler"], "scheduler state")
	})

	t.Run("scheduler not running", func(t *testing.T) {
		f := newFixture(t, false)
		rec := f.do(http.MethodGet, "/health", "")
		test.Equals(t, http.StatusServiceUnavailable, rec.Code, "status code")
		test.Equals(t, "degraded", decode(t, rec)["status"], "status")
	})

	t.Run("redis down", func(t *testing.T) {
		f := newFixture(t, true)
		f.handler.WithHistory(&historyMock{pingErr: errors.New("connection refused")})
		rec := f.do(http.MethodGet, "/health", "")
		test.Equals(t, http.StatusServiceUnavailable, rec.Code, "status code")
		body := decode(t, rec)
		test.Equals(t, "degraded", body["status"], "status")
		test.Equals(t, false, body["redis"], "redis flag")
	})
}

func TestGetStats(t *testing.T) {
	f := newFixture(t, false)
	f.handler.WithHistory(&historyMock{})
	f.do(http.MethodPost, "/events", `{"host":"a.com","path":"/x","bytes":10}`)

	rec := f.do(http.MethodGet, "/stats", "")

	test.Equals(t, http.StatusOK, rec.Code, "status code")
	body := decode(t, rec)
	collector := body["collector"].(map[string]interface{})
	test.Equals(t, float64(1), collector["events_ingested"], "events ingested")
	test.Equals(t, "idle", body["scheduler"], "scheduler state")
	test.Equals(t, "no_alert", body["alert_status"], "alert status")
	test.True(t, body["redis"] != nil, "redis stats present")
	test.Equals(t, "test", body["host"].(map[string]interface{})["hostname"], "host stats")
}

func TestGetStatsHostError(t *testing.T) {
	f := newFixture(t, false)
	f.handler.hostStats = func() (system.HostStats, error) {
		return system.HostStats{}, errors.New("unsupported")
	}

	body := decode(t, f.do(http.MethodGet, "/stats", ""))

	test.Equals(t, "unsupported", body["host_error"], "host error")
	test.True(t, body["host"] == nil, "no host stats")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodGet, "/events", "")
	test.Equals(t, http.StatusMethodNotAllowed, rec.Code, "status code")
}

func eventBody(host string, bytes int, at time.Time) string {
	return `{"host":"` + host + `","path":"/x","bytes":` + strconv.Itoa(bytes) +
		`,"timestamp":"` + at.Format(time.RFC3339Nano) + `"}`
}

func TestSubmitEventRejectsFutureTimestamp(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/events", eventBody("a.com", 1, time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)))
	test.Equals(t, http.StatusBadRequest, rec.Code, "future event status code")
	test.Equals(t, uint64(0), f.collector.Stats().EventsIngested, "future event not ingested")

	// небольшое расхождение часов допустимо
	rec = f.do(http.MethodPost, "/events", eventBody("a.com", 1, time.Now().Add(time.Second)))
	test.Equals(t, http.StatusAccepted, rec.Code, "skewed event status code")

	for i := 0; i < 5; i++ {
		rec = f.do(http.MethodPost, "/events", eventBody("a.com", 1000, time.Now()))
		test.Equals(t, http.StatusAccepted, rec.Code, "current event status code")
	}

	_, traffic := f.collector.SnapshotAndReset(2 * time.Minute)
	test.Equals(t, uint64(5001), traffic, "rolling traffic keeps current events")
	test.Equals(t, 6, f.collector.Stats().SamplesRetained, "samples retained")
}

func TestBatchSubmitSkipsFutureEvents(t *testing.T) {
	f := newFixture(t, false)
	now := time.Now()

	rec := f.do(http.MethodPost, "/events/batch", "["+
		eventBody("a.com", 1, now.Add(24*time.Hour))+","+
		eventBody("a.com", 1000, now)+","+
		eventBody("b.com", 1000, now)+"]")

	test.Equals(t, http.StatusAccepted, rec.Code, "status code")
	body := decode(t, rec)
	test.Equals(t, float64(3), body["total"], "total")
	test.Equals(t, float64(2), body["accepted"], "accepted")

	_, traffic := f.collector.SnapshotAndReset(2 * time.Minute)
	test.Equals(t, uint64(2000), traffic, "rolling traffic")
}
