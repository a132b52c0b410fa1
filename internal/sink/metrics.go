package sink

import (
	"httpmonitor/internal/metrics"
	"httpmonitor/internal/models"
)

// Metrics обновляет метрики Prometheus по отчету
type Metrics struct{}

// Report выставляет gauge-метрики и считает алерты
func (Metrics) Report(r models.Report) {
	metrics.RollingTraffic.Set(float64(r.Traffic))
	metrics.SectionsReported.Set(float64(len(r.Sections)))
	metrics.AlertState.Set(float64(r.Status))
	if r.Alert != nil {
		metrics.AlertsEmitted.WithLabelValues(r.Alert.Status.String()).Inc()
	}
}
