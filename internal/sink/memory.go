package sink

import (
	"fmt"
	"sync"

	"httpmonitor/internal/models"
)

// Memory хранит последний отчет и ограниченную историю алертов для API
type Memory struct {
	mu          sync.RWMutex
	latest      models.Report
	hasReport   bool
	alerts      []models.AlertEvent
	historySize int
}

// NewMemory создает хранилище с историей из historySize алертов
func NewMemory(historySize int) (*Memory, error) {
	if historySize < 1 {
		return nil, fmt.Errorf("historySize should be at least 1")
	}
	return &Memory{
		alerts:      make([]models.AlertEvent, 0, historySize),
		historySize: historySize,
	}, nil
}

// Report запоминает отчет и алерт
func (m *Memory) Report(r models.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest = r
	m.hasReport = true
	if r.Alert == nil {
		return
	}
	if len(m.alerts) == m.historySize {
		copy(m.alerts, m.alerts[1:])
		m.alerts = m.alerts[:len(m.alerts)-1]
	}
	m.alerts = append(m.alerts, *r.Alert)
}

// Latest последний отчет
func (m *Memory) Latest() (models.Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.hasReport
}

// Alerts история алертов, старые первыми
func (m *Memory) Alerts() []models.AlertEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alerts := make([]models.AlertEvent, len(m.alerts))
	copy(alerts, m.alerts)
	return alerts
}
