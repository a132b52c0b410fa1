package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"httpmonitor/internal/models"
	"httpmonitor/internal/test"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	store, err := NewRedisCache(context.Background(), server.Addr(), "", 0, time.Hour)
	test.FailOnError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, server
}

func TestRedisCacheReports(t *testing.T) {
	t.Parallel()
	store, server := newTestCache(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0).UTC()
	for i := 0; i < 3; i++ {
		err := store.StoreReport(ctx, models.Report{
			Sections:    []models.SectionStats{{Section: "h/a", Hits: uint64(i + 1), TotalBytes: 10}},
			Traffic:     uint64(100 * i),
			GeneratedAt: base.Add(time.Duration(i) * time.Second),
		})
		test.FailOnError(t, err)
	}

	reports, err := store.GetRecentReports(ctx, 2)
	test.FailOnError(t, err)
	test.Equals(t, 2, len(reports), "reports count")
	test.Equals(t, uint64(200), reports[0].Traffic, "newest report first")
	test.Equals(t, uint64(100), reports[1].Traffic, "second newest report")
	test.Equals(t, uint64(3), reports[0].Sections[0].Hits, "sections survive encoding")

	test.True(t, server.TTL("report:"+itoa(base.UnixNano())) > 0, "report key has ttl")
}

func TestRedisCacheAlerts(t *testing.T) {
	t.Parallel()
	store, server := newTestCache(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0).UTC()
	over := models.AlertEvent{Status: models.OverThreshold, Traffic: 1100, TriggeredAt: base}
	under := models.AlertEvent{Status: models.UnderThreshold, Traffic: 900, TriggeredAt: base.Add(time.Minute)}
	test.FailOnError(t, store.StoreAlert(ctx, over))
	test.FailOnError(t, store.StoreAlert(ctx, under))

	alerts, err := store.GetRecentAlerts(ctx, 10)
	test.FailOnError(t, err)
	test.Equals(t, []models.AlertEvent{under, over}, alerts, "alerts newest first")

	test.Equals(t, 24*time.Hour, server.TTL("alert:"+itoa(base.UnixNano())), "alerts live longer than reports")

	// истекший ключ пропускается
	server.Del("alert:" + itoa(base.UnixNano()))
	alerts, err = store.GetRecentAlerts(ctx, 10)
	test.FailOnError(t, err)
	test.Equals(t, []models.AlertEvent{under}, alerts, "expired alert is skipped")

	alerts, err = store.GetRecentAlerts(ctx, 0)
	test.FailOnError(t, err)
	test.Equals(t, 0, len(alerts), "zero limit")
}

func TestRedisCachePruneHistory(t *testing.T) {
	t.Parallel()
	store, _ := newTestCache(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0).UTC()
	test.FailOnError(t, store.StoreReport(ctx, models.Report{GeneratedAt: base}))
	test.FailOnError(t, store.StoreReport(ctx, models.Report{GeneratedAt: base.Add(time.Hour)}))
	test.FailOnError(t, store.StoreAlert(ctx, models.AlertEvent{Status: models.OverThreshold, TriggeredAt: base}))
	test.FailOnError(t, store.StoreAlert(ctx, models.AlertEvent{Status: models.UnderThreshold, TriggeredAt: base.Add(-48 * time.Hour)}))

	// отчеты старше часа, алерты старше суток
	removed, err := store.PruneHistory(ctx, base.Add(time.Minute), base.Add(time.Minute-24*time.Hour))
	test.FailOnError(t, err)
	test.Equals(t, int64(2), removed, "removed entries")

	reports, err := store.GetRecentReports(ctx, 10)
	test.FailOnError(t, err)
	test.Equals(t, 1, len(reports), "reports after prune")
	test.Equals(t, base.Add(time.Hour), reports[0].GeneratedAt, "remaining report")

	alerts, err := store.GetRecentAlerts(ctx, 10)
	test.FailOnError(t, err)
	test.Equals(t, 1, len(alerts), "alert older than report retention survives")
	test.Equals(t, models.OverThreshold, alerts[0].Status, "remaining alert")
}

func TestRedisCachePing(t *testing.T) {
	t.Parallel()
	store, server := newTestCache(t)
	test.FailOnError(t, store.Ping(context.Background()))

	server.Close()
	test.True(t, store.Ping(context.Background()) != nil, "ping must fail when redis is down")
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	t.Parallel()
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := NewRedisCache(context.Background(), addr, "", 0, time.Hour)
	test.True(t, err != nil, "connection error expected")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
