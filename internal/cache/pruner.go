package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"httpmonitor/internal/metrics"

	"github.com/robfig/cron/v3"
)

type historyPruner interface {
	PruneHistory(ctx context.Context, reportsBefore, alertsBefore time.Time) (int64, error)
}

// Pruner периодически чистит индексы истории в Redis
type Pruner struct {
	cron      *cron.Cron
	store     historyPruner
	retention time.Duration
	timeout   time.Duration
}

// NewPruner создает задачу очистки по cron-расписанию с секундами
func NewPruner(store historyPruner, schedule string, retention time.Duration) (*Pruner, error) {
	if store == nil {
		return nil, fmt.Errorf("store can't be nil")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %v", retention)
	}

	p := &Pruner{
		cron:      cron.New(cron.WithSeconds()),
		store:     store,
		retention: retention,
		timeout:   10 * time.Second,
	}
	if _, err := p.cron.AddFunc(schedule, p.prune); err != nil {
		return nil, fmt.Errorf("failed to schedule history pruning %q: %w", schedule, err)
	}
	return p, nil
}

// Start запускает расписание
func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop останавливает расписание и ждет текущий запуск
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

// Entries запланированные задачи
func (p *Pruner) Entries() []cron.Entry {
	return p.cron.Entries()
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	now := time.Now()
	removed, err := p.store.PruneHistory(ctx, now.Add(-p.retention), now.Add(-p.retention*AlertRetentionFactor))
	if err != nil {
		metrics.RedisOperations.WithLabelValues("prune_history", "error").Inc()
		log.Printf("History pruning failed: %v", err)
		return
	}
	metrics.RedisOperations.WithLabelValues("prune_history", "success").Inc()
	if removed > 0 {
		log.Printf("History pruning removed %d entries", removed)
	}
}
