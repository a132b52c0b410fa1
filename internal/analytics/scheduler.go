package analytics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"httpmonitor/internal/metrics"
	"httpmonitor/internal/models"
)

// Sink получатель результатов тика.
// Report не должен блокировать планировщик.
type Sink interface {
	Report(r models.Report)
}

// SchedulerState этап жизненного цикла планировщика
type SchedulerState int32

const (
	Idle SchedulerState = iota
	Running
	Stopping
	Stopped
)

func (s SchedulerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("scheduler_state(%d)", int32(s))
}

// MonitorScheduler периодический цикл: снимок коллектора, оценка алерта, отправка в sink
type MonitorScheduler struct {
	collector    *TrafficCollector
	engine       *AlertEngine
	sink         Sink
	updatePeriod time.Duration
	historySpan  time.Duration
	now          func() time.Time

	mu       sync.Mutex
	state    SchedulerState
	stopChan chan struct{}
	wg       sync.WaitGroup

	alertStatus atomic.Int32
}

// NewMonitorScheduler создает планировщик в состоянии Idle
func NewMonitorScheduler(
	collector *TrafficCollector, engine *AlertEngine, sink Sink,
	updatePeriod, historySpan time.Duration,
) (*MonitorScheduler, error) {
	if collector == nil || engine == nil || sink == nil {
		return nil, fmt.Errorf("%w: collector, engine and sink are required", models.ErrInvalidConfiguration)
	}
	if updatePeriod <= 0 {
		return nil, fmt.Errorf("%w: update period must be positive, got %v", models.ErrInvalidConfiguration, updatePeriod)
	}
	if historySpan <= 0 {
		return nil, fmt.Errorf("%w: history span must be positive, got %v", models.ErrInvalidConfiguration, historySpan)
	}
	return &MonitorScheduler{
		collector:    collector,
		engine:       engine,
		sink:         sink,
		updatePeriod: updatePeriod,
		historySpan:  historySpan,
		now:          time.Now,
		state:        Idle,
		stopChan:     make(chan struct{}),
	}, nil
}

// Start запускает цикл тиков. Повторный запуск не поддерживается.
func (s *MonitorScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("%w: can't start scheduler in state %v", models.ErrInvalidState, s.state)
	}
	s.state = Running

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop останавливает цикл и дожидается его завершения.
// Идемпотентен; нельзя вызывать из Sink.Report.
func (s *MonitorScheduler) Stop() {
	s.mu.Lock()
	switch s.state {
	case Idle:
		s.state = Stopped
		s.mu.Unlock()
		return
	case Running:
		s.state = Stopping
		close(s.stopChan)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// State текущее состояние жизненного цикла
func (s *MonitorScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AlertStatus состояние алертинга после последнего тика
func (s *MonitorScheduler) AlertStatus() models.AlertStatus {
	return models.AlertStatus(s.alertStatus.Load())
}

// run ждет следующий тик или отмену и выполняет один цикл
func (s *MonitorScheduler) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.state = Stopped
		s.mu.Unlock()
		s.wg.Done()
	}()

	ticker := time.NewTicker(s.updatePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// stop мог прийти одновременно с тиком
			select {
			case <-s.stopChan:
				return
			default:
			}
			s.tick()
		}
	}
}

// tick один цикл отчета и алертинга
func (s *MonitorScheduler) tick() {
	start := time.Now()

	sections, traffic := s.collector.SnapshotAndReset(s.historySpan)
	report := models.Report{
		Sections:    sections,
		Traffic:     traffic,
		GeneratedAt: s.now(),
	}
	if event, ok := s.engine.Evaluate(traffic); ok {
		report.Alert = &event
	}
	report.Status = s.engine.Status()
	s.alertStatus.Store(int32(report.Status))

	s.sink.Report(report)

	metrics.SchedulerTicks.Inc()
	metrics.TickLatency.Observe(time.Since(start).Seconds())
}
