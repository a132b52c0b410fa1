package sink

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"httpmonitor/internal/metrics"
	"httpmonitor/internal/models"
)

// alertQueueSize алертов мало, но терять их нельзя: у них своя очередь
const alertQueueSize = 64

type historyStore interface {
	StoreReport(ctx context.Context, report models.Report) error
	StoreAlert(ctx context.Context, alert models.AlertEvent) error
}

// RedisExporter асинхронно выгружает отчеты и алерты в хранилище истории.
// Report никогда не блокирует: при полной очереди отчет отбрасывается,
// алерт из него при этом ставится в отдельную очередь.
type RedisExporter struct {
	store    historyStore
	queue    chan models.Report
	alerts   chan models.AlertEvent
	timeout  time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRedisExporter создает экспортер с очередью queueSize и запускает воркер
func NewRedisExporter(store historyStore, queueSize int) (*RedisExporter, error) {
	if store == nil {
		return nil, fmt.Errorf("store can't be nil")
	}
	if queueSize < 1 {
		return nil, fmt.Errorf("queueSize should be at least 1")
	}
	e := &RedisExporter{
		store:    store,
		queue:    make(chan models.Report, queueSize),
		alerts:   make(chan models.AlertEvent, alertQueueSize),
		timeout:  5 * time.Second,
		stopChan: make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e, nil
}

// Report ставит отчет и его алерт в очереди экспорта
func (e *RedisExporter) Report(r models.Report) {
	if r.Alert != nil {
		select {
		case e.alerts <- *r.Alert:
		default:
			metrics.AlertsDropped.Inc()
			log.Printf("Alert export queue is full, dropping %s alert", r.Alert.Status)
		}
	}

	select {
	case e.queue <- r:
		metrics.ExportQueueSize.Set(float64(len(e.queue)))
	default:
		// Очередь полна, пропускаем отчет
		metrics.ReportsDropped.Inc()
	}
}

// Stop останавливает воркер, оставшиеся в очередях отчеты и алерты выгружаются
func (e *RedisExporter) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
	e.wg.Wait()
}

func (e *RedisExporter) run() {
	defer e.wg.Done()

	for {
		select {
		case a := <-e.alerts:
			e.exportAlert(a)
		case r := <-e.queue:
			e.exportReport(r)
		case <-e.stopChan:
			e.drain()
			return
		}
	}
}

func (e *RedisExporter) drain() {
	for {
		select {
		case a := <-e.alerts:
			e.exportAlert(a)
		case r := <-e.queue:
			e.exportReport(r)
		default:
			return
		}
	}
}

func (e *RedisExporter) exportReport(r models.Report) {
	metrics.ExportQueueSize.Set(float64(len(e.queue)))

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.store.StoreReport(ctx, r); err == nil {
		metrics.RedisOperations.WithLabelValues("store_report", "success").Inc()
	} else {
		metrics.RedisOperations.WithLabelValues("store_report", "error").Inc()
		log.Printf("Failed to export report: %v", err)
	}
}

func (e *RedisExporter) exportAlert(a models.AlertEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.store.StoreAlert(ctx, a); err == nil {
		metrics.RedisOperations.WithLabelValues("store_alert", "success").Inc()
	} else {
		metrics.RedisOperations.WithLabelValues("store_alert", "error").Inc()
		log.Printf("Failed to export alert: %v", err)
	}
}
