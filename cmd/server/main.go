package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"httpmonitor/internal/analytics"
	"httpmonitor/internal/cache"
	"httpmonitor/internal/config"
	"httpmonitor/internal/handlers"
	"httpmonitor/internal/sink"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	log.Println("Starting HTTP Traffic Monitor...")

	// log.Fatalf не выполняет defer, поэтому ресурсы закрываются внутри run
	if err := run(*configPath); err != nil {
		log.Fatalf("%v", err)
	}
	log.Println("Server stopped gracefully")
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Коллектор и алертинг
	collector, err := analytics.NewTrafficCollector(cfg.Monitor.HistorySpan, nil)
	if err != nil {
		return fmt.Errorf("failed to create collector: %w", err)
	}
	engine, err := analytics.NewAlertEngine(cfg.Monitor.TrafficLimit, nil)
	if err != nil {
		return fmt.Errorf("failed to create alert engine: %w", err)
	}

	// Получатели отчетов
	memory, err := sink.NewMemory(cfg.Monitor.AlertHistorySize)
	if err != nil {
		return fmt.Errorf("failed to create memory sink: %w", err)
	}
	console, err := sink.NewConsole(os.Stdout, cfg.Monitor.TopSections)
	if err != nil {
		return fmt.Errorf("failed to create console sink: %w", err)
	}
	sinks := []analytics.Sink{memory, console, sink.Metrics{}}

	// Redis опционален: история отчетов и алертов
	var redisCache *cache.RedisCache
	if cfg.RedisEnabled() {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		redisCache, err = cache.NewRedisCache(
			connectCtx,
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.HistoryRetention,
		)
		connectCancel()
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisCache.Close()
		log.Println("Connected to Redis")

		exporter, err := sink.NewRedisExporter(redisCache, cfg.Redis.ExportQueueSize)
		if err != nil {
			return fmt.Errorf("failed to create Redis exporter: %w", err)
		}
		// defer в обратном порядке: экспорт дописывается до закрытия клиента
		defer exporter.Stop()
		sinks = append(sinks, exporter)

		pruner, err := cache.NewPruner(redisCache, cfg.Redis.PruneSchedule, cfg.Redis.HistoryRetention)
		if err != nil {
			return fmt.Errorf("failed to create history pruner: %w", err)
		}
		pruner.Start()
		defer pruner.Stop()
		log.Printf("History pruning scheduled: %q, retention %v\n", cfg.Redis.PruneSchedule, cfg.Redis.HistoryRetention)
	} else {
		log.Println("REDIS_ADDR is empty, history export disabled")
	}

	scheduler, err := analytics.NewMonitorScheduler(
		collector,
		engine,
		sink.NewMulti(sinks...),
		cfg.Monitor.UpdatePeriod,
		cfg.Monitor.HistorySpan,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	// планировщик останавливается раньше экспортера, последний отчет успевает в очередь
	defer scheduler.Stop()
	log.Printf("Scheduler started: update period %v, history span %v, traffic limit %d bytes\n",
		cfg.Monitor.UpdatePeriod, cfg.Monitor.HistorySpan, cfg.Monitor.TrafficLimit)

	// Инициализация HTTP handlers
	handler := handlers.NewHandler(collector, scheduler, memory, cfg.Monitor.TopSections)
	if redisCache != nil {
		handler.WithHistory(redisCache)
	}

	// HTTP сервер
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server listening on port %s\n", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	return nil
}
