package analytics

import (
	"fmt"
	"time"

	"httpmonitor/internal/models"
)

// trafficSample байты одного события с моментом наблюдения
type trafficSample struct {
	observedAt time.Time
	bytes      uint64
}

// TrafficWindow скользящее окно объёма трафика.
// Не потокобезопасно, синхронизация на стороне TrafficCollector.
type TrafficWindow struct {
	historySpan time.Duration
	samples     []trafficSample
	horizon     time.Time
	ordered     bool
}

// NewTrafficWindow создает окно, хранящее историю за historySpan
func NewTrafficWindow(historySpan time.Duration) (*TrafficWindow, error) {
	if historySpan <= 0 {
		return nil, fmt.Errorf("%w: history span must be positive, got %v", models.ErrInvalidConfiguration, historySpan)
	}
	return &TrafficWindow{
		historySpan: historySpan,
		samples:     make([]trafficSample, 0, 64),
		ordered:     true,
	}, nil
}

// Record добавляет сэмпл и вытесняет всё, что старше at - historySpan.
// Горизонт вытеснения только растет.
func (w *TrafficWindow) Record(bytes uint64, at time.Time) {
	if n := len(w.samples); n > 0 && at.Before(w.samples[n-1].observedAt) {
		w.ordered = false
	}
	w.samples = append(w.samples, trafficSample{observedAt: at, bytes: bytes})

	if horizon := at.Add(-w.historySpan); horizon.After(w.horizon) {
		w.horizon = horizon
	}
	if w.ordered {
		w.trimHead()
	} else {
		w.compact()
	}
}

// trimHead удаляет просроченные сэмплы с головы упорядоченного окна
func (w *TrafficWindow) trimHead() {
	expired := 0
	for expired < len(w.samples) && w.expired(w.samples[expired]) {
		expired++
	}
	if expired == 0 {
		return
	}
	n := copy(w.samples, w.samples[expired:])
	clear(w.samples[n:])
	w.samples = w.samples[:n]
}

// compact удаляет просроченные сэмплы по всему окну, не пересортировывая его
func (w *TrafficWindow) compact() {
	kept := w.samples[:0]
	ordered := true
	for _, s := range w.samples {
		if w.expired(s) {
			continue
		}
		if n := len(kept); n > 0 && s.observedAt.Before(kept[n-1].observedAt) {
			ordered = false
		}
		kept = append(kept, s)
	}
	clear(w.samples[len(kept):])
	w.samples = kept
	w.ordered = ordered
}

func (w *TrafficWindow) expired(s trafficSample) bool {
	return !s.observedAt.After(w.horizon)
}

// SumOverLast сумма байтов сэмплов с observedAt >= now - span.
// Окно шире historySpan возвращает всю сохранённую историю.
func (w *TrafficWindow) SumOverLast(span time.Duration, now time.Time) uint64 {
	since := now.Add(-span)
	var sum uint64
	for _, s := range w.samples {
		if !s.observedAt.Before(since) {
			sum += s.bytes
		}
	}
	return sum
}

// Len количество сохранённых сэмплов
func (w *TrafficWindow) Len() int {
	return len(w.samples)
}
