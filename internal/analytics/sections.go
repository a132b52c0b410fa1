package analytics

import (
	"sort"

	"httpmonitor/internal/models"
)

// SectionTable счетчики запросов и байтов по секциям с момента сброса.
// Не потокобезопасна, синхронизация на стороне TrafficCollector.
type SectionTable struct {
	entries    []models.SectionStats
	index      map[string]int
	totalBytes uint64
}

// NewSectionTable создает пустую таблицу секций
func NewSectionTable() *SectionTable {
	return &SectionTable{
		index: make(map[string]int),
	}
}

// Record заменяет статистику секции новым значением с учетом события
func (t *SectionTable) Record(event models.TrafficEvent) {
	i, exists := t.index[event.Section]
	if !exists {
		i = len(t.entries)
		t.index[event.Section] = i
		t.entries = append(t.entries, models.SectionStats{Section: event.Section})
	}

	prev := t.entries[i]
	t.entries[i] = models.SectionStats{
		Section:      prev.Section,
		Hits:         prev.Hits + 1,
		TotalBytes:   prev.TotalBytes + event.Bytes,
		LastHitBytes: event.Bytes,
		LastHitAt:    event.ObservedAt,
	}
	t.totalBytes += event.Bytes
}

// RankedSnapshot копия статистики по убыванию hits.
// При равенстве сохраняется порядок первого появления секции.
func (t *SectionTable) RankedSnapshot() []models.SectionStats {
	snapshot := make([]models.SectionStats, len(t.entries))
	copy(snapshot, t.entries)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Hits > snapshot[j].Hits
	})
	return snapshot
}

// Reset очищает все секции
func (t *SectionTable) Reset() {
	t.entries = t.entries[:0]
	clear(t.index)
	t.totalBytes = 0
}

// TotalBytes сумма TotalBytes по всем секциям
func (t *SectionTable) TotalBytes() uint64 {
	return t.totalBytes
}

// Len количество секций
func (t *SectionTable) Len() int {
	return len(t.entries)
}
