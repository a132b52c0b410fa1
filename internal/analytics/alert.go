package analytics

import (
	"fmt"
	"time"

	"httpmonitor/internal/models"
)

// Transition чистая функция переходов алертинга.
// Возвращает следующее состояние и признак того, что нужно выпустить событие.
//
// Пересечение порога проверяется строго (> и <), значение равное порогу
// считается "не выше порога".
func Transition(state models.AlertStatus, traffic, threshold uint64) (models.AlertStatus, bool) {
	switch state {
	case models.NoAlert:
		if traffic > threshold {
			return models.OverThreshold, true
		}
		return models.NoAlert, false
	case models.OverThreshold:
		if traffic < threshold {
			return models.UnderThreshold, true
		}
		return models.OverThreshold, false
	case models.UnderThreshold:
		if traffic > threshold {
			return models.OverThreshold, true
		}
		return models.NoAlert, false
	}
	// неизвестное состояние сводится к исходному
	return Transition(models.NoAlert, traffic, threshold)
}

// AlertEngine машина состояний алертинга по порогу трафика.
// Вызывается только из тика MonitorScheduler, внутренних блокировок нет.
type AlertEngine struct {
	threshold uint64
	status    models.AlertStatus
	now       func() time.Time
}

// NewAlertEngine создает движок алертинга с порогом в байтах
func NewAlertEngine(threshold uint64, clock func() time.Time) (*AlertEngine, error) {
	if threshold == 0 {
		return nil, fmt.Errorf("%w: traffic limit must be positive", models.ErrInvalidConfiguration)
	}
	if clock == nil {
		clock = time.Now
	}
	return &AlertEngine{
		threshold: threshold,
		status:    models.NoAlert,
		now:       clock,
	}, nil
}

// Evaluate применяет переход и возвращает событие, если состояние изменилось
func (e *AlertEngine) Evaluate(traffic uint64) (models.AlertEvent, bool) {
	next, emit := Transition(e.status, traffic, e.threshold)
	e.status = next
	if !emit {
		return models.AlertEvent{}, false
	}
	return models.AlertEvent{
		Status:      next,
		Traffic:     traffic,
		TriggeredAt: e.now(),
	}, true
}

// Status текущее состояние
func (e *AlertEngine) Status() models.AlertStatus {
	return e.status
}

// Threshold порог в байтах
func (e *AlertEngine) Threshold() uint64 {
	return e.threshold
}
