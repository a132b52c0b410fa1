package analytics

import (
	"sync"
	"time"

	"httpmonitor/internal/models"
)

// CollectorStats состояние коллектора для /stats
type CollectorStats struct {
	EventsIngested  uint64 `json:"events_ingested"`
	SectionsTracked int    `json:"sections_tracked"`
	SamplesRetained int    `json:"samples_retained"`
}

// TrafficCollector единая точка приема событий и снятия отчета.
// Окно и таблица секций защищены одним мьютексом.
type TrafficCollector struct {
	mu       sync.Mutex
	window   *TrafficWindow
	sections *SectionTable
	ingested uint64
	now      func() time.Time
}

// NewTrafficCollector создает коллектор с окном historySpan
func NewTrafficCollector(historySpan time.Duration, clock func() time.Time) (*TrafficCollector, error) {
	window, err := NewTrafficWindow(historySpan)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &TrafficCollector{
		window:   window,
		sections: NewSectionTable(),
		now:      clock,
	}, nil
}

// Ingest записывает событие в окно и в таблицу секций
func (c *TrafficCollector) Ingest(event models.TrafficEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window.Record(event.Bytes, event.ObservedAt)
	c.sections.Record(event)
	c.ingested++
}

// SnapshotAndReset атомарно снимает рейтинг секций и сумму за span,
// затем сбрасывает таблицу секций. Окно трафика не очищается.
func (c *TrafficCollector) SnapshotAndReset(span time.Duration) ([]models.SectionStats, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ranked := c.sections.RankedSnapshot()
	traffic := c.window.SumOverLast(span, c.now())
	c.sections.Reset()
	return ranked, traffic
}

// Stats возвращает счетчики коллектора
func (c *TrafficCollector) Stats() CollectorStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CollectorStats{
		EventsIngested:  c.ingested,
		SectionsTracked: c.sections.Len(),
		SamplesRetained: c.window.Len(),
	}
}
