package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfiguration некорректные параметры при создании компонентов
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidState недопустимый переход жизненного цикла
	ErrInvalidState = errors.New("invalid state")
)

// HTTPRequest запрос, присланный источником трафика
type HTTPRequest struct {
	Timestamp time.Time `json:"timestamp"`
	Host      string    `json:"host"`
	Path      string    `json:"path"`
	Method    string    `json:"method,omitempty"`
	Bytes     uint64    `json:"bytes"`
}

// TrafficEvent разобранное событие трафика
type TrafficEvent struct {
	Section    string
	Bytes      uint64
	ObservedAt time.Time
}

// SectionStats накопленная статистика секции с момента последнего сброса
type SectionStats struct {
	Section      string    `json:"section"`
	Hits         uint64    `json:"hits"`
	TotalBytes   uint64    `json:"total_bytes"`
	LastHitBytes uint64    `json:"last_hit_bytes"`
	LastHitAt    time.Time `json:"last_hit_at"`
}

// AlertStatus состояние алертинга
type AlertStatus int

const (
	NoAlert AlertStatus = iota
	OverThreshold
	UnderThreshold
)

func (s AlertStatus) String() string {
	switch s {
	case NoAlert:
		return "no_alert"
	case OverThreshold:
		return "over_threshold"
	case UnderThreshold:
		return "under_threshold"
	}
	return fmt.Sprintf("alert_status(%d)", int(s))
}

// MarshalText кодирует статус строкой в JSON
func (s AlertStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText разбирает строковое представление статуса
func (s *AlertStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "no_alert":
		*s = NoAlert
	case "over_threshold":
		*s = OverThreshold
	case "under_threshold":
		*s = UnderThreshold
	default:
		return fmt.Errorf("unknown alert status %q", text)
	}
	return nil
}

// AlertEvent событие пересечения порога
type AlertEvent struct {
	Status      AlertStatus `json:"status"`
	Traffic     uint64      `json:"traffic"`
	TriggeredAt time.Time   `json:"triggered_at"`
}

// Report результат одного тика планировщика
type Report struct {
	Sections    []SectionStats `json:"sections"`
	Traffic     uint64         `json:"traffic"`
	Status      AlertStatus    `json:"status"`
	Alert       *AlertEvent    `json:"alert,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}
