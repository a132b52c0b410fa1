package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"httpmonitor/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	reportsIndexKey = "reports"
	alertsIndexKey  = "alerts"

	// AlertRetentionFactor во сколько раз алерты хранятся дольше отчетов
	AlertRetentionFactor = 24
)

// RedisCache хранилище истории отчетов и алертов в Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache создает новый Redis кэш
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// StoreReport сохраняет отчет тика
func (r *RedisCache) StoreReport(ctx context.Context, report models.Report) error {
	key := "report:" + strconv.FormatInt(report.GeneratedAt.UnixNano(), 10)

	jsonData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return r.storeIndexed(ctx, reportsIndexKey, key, jsonData, report.GeneratedAt, r.ttl)
}

// StoreAlert сохраняет алерт (с более длительным TTL)
func (r *RedisCache) StoreAlert(ctx context.Context, alert models.AlertEvent) error {
	key := "alert:" + strconv.FormatInt(alert.TriggeredAt.UnixNano(), 10)

	jsonData, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	// Алерты хранятся дольше отчетов
	return r.storeIndexed(ctx, alertsIndexKey, key, jsonData, alert.TriggeredAt, r.ttl*AlertRetentionFactor)
}

// storeIndexed пишет значение и добавляет ключ в sorted set по времени
func (r *RedisCache) storeIndexed(ctx context.Context, index, key string, data []byte, at time.Time, ttl time.Duration) error {
	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.ZAdd(ctx, index, redis.Z{Score: float64(at.Unix()), Member: key})
	pipe.Expire(ctx, index, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// GetRecentReports получает последние отчеты, новые первыми
func (r *RedisCache) GetRecentReports(ctx context.Context, limit int) ([]models.Report, error) {
	payloads, err := r.recent(ctx, reportsIndexKey, limit)
	if err != nil {
		return nil, err
	}

	reports := make([]models.Report, 0, len(payloads))
	for _, payload := range payloads {
		var report models.Report
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// GetRecentAlerts получает последние алерты, новые первыми
func (r *RedisCache) GetRecentAlerts(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	payloads, err := r.recent(ctx, alertsIndexKey, limit)
	if err != nil {
		return nil, err
	}

	alerts := make([]models.AlertEvent, 0, len(payloads))
	for _, payload := range payloads {
		var alert models.AlertEvent
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// recent читает значения последних limit ключей индекса
func (r *RedisCache) recent(ctx context.Context, index string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	keys, err := r.client.ZRevRange(ctx, index, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s index: %w", index, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", index, err)
	}

	payloads := make([]string, 0, len(values))
	for _, v := range values {
		// Ключ мог истечь раньше индекса
		if s, ok := v.(string); ok {
			payloads = append(payloads, s)
		}
	}
	return payloads, nil
}

// PruneHistory удаляет из индексов отчеты старше reportsBefore и алерты старше alertsBefore
func (r *RedisCache) PruneHistory(ctx context.Context, reportsBefore, alertsBefore time.Time) (int64, error) {
	pipe := r.client.Pipeline()
	reports := pipe.ZRemRangeByScore(ctx, reportsIndexKey, "-inf", "("+strconv.FormatInt(reportsBefore.Unix(), 10))
	alerts := pipe.ZRemRangeByScore(ctx, alertsIndexKey, "-inf", "("+strconv.FormatInt(alertsBefore.Unix(), 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return reports.Val() + alerts.Val(), nil
}

// Close закрывает соединение с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetStats возвращает статистику пула соединений
func (r *RedisCache) GetStats() map[string]interface{} {
	stats := r.client.PoolStats()

	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
