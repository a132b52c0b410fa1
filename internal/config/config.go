package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"httpmonitor/internal/models"

	"gopkg.in/yaml.v3"
)

// Config конфигурация приложения
type Config struct {
	ServerPort string `yaml:"server_port"`

	Monitor struct {
		UpdatePeriod     time.Duration `yaml:"update_period"`
		HistorySpan      time.Duration `yaml:"history_span"`
		TrafficLimit     uint64        `yaml:"traffic_limit"`
		TopSections      int           `yaml:"top_sections"`
		AlertHistorySize int           `yaml:"alert_history_size"`
	} `yaml:"monitor"`

	Redis struct {
		Addr             string        `yaml:"addr"`
		Password         string        `yaml:"password"`
		DB               int           `yaml:"db"`
		HistoryRetention time.Duration `yaml:"history_retention"`
		PruneSchedule    string        `yaml:"prune_schedule"`
		ExportQueueSize  int           `yaml:"export_queue_size"`
	} `yaml:"redis"`
}

// Default конфигурация по умолчанию
func Default() Config {
	var c Config
	c.ServerPort = "8080"
	c.Monitor.UpdatePeriod = 10 * time.Second
	c.Monitor.HistorySpan = 2 * time.Minute
	c.Monitor.TrafficLimit = 1_000_000
	c.Monitor.TopSections = 10
	c.Monitor.AlertHistorySize = 10
	c.Redis.HistoryRetention = time.Hour
	c.Redis.PruneSchedule = "0 */5 * * * *"
	c.Redis.ExportQueueSize = 100
	return c
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML-файл, затем environment
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// applyEnv переопределяет значения из environment variables
func (c *Config) applyEnv() {
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.Monitor.UpdatePeriod = getEnvAsSeconds("UPDATE_PERIOD_SECONDS", c.Monitor.UpdatePeriod)
	c.Monitor.HistorySpan = getEnvAsSeconds("HISTORY_SPAN_SECONDS", c.Monitor.HistorySpan)
	c.Monitor.TrafficLimit = getEnvAsUint("TRAFFIC_LIMIT_BYTES", c.Monitor.TrafficLimit)
	c.Monitor.TopSections = getEnvAsInt("TOP_SECTIONS", c.Monitor.TopSections)
	c.Monitor.AlertHistorySize = getEnvAsInt("ALERT_HISTORY_SIZE", c.Monitor.AlertHistorySize)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.HistoryRetention = getEnvAsMinutes("HISTORY_RETENTION_MINUTES", c.Redis.HistoryRetention)
	c.Redis.PruneSchedule = getEnv("PRUNE_SCHEDULE", c.Redis.PruneSchedule)
	c.Redis.ExportQueueSize = getEnvAsInt("EXPORT_QUEUE_SIZE", c.Redis.ExportQueueSize)
}

// Validate проверяет параметры, без которых монитор не стартует
func (c Config) Validate() error {
	if c.Monitor.UpdatePeriod <= 0 {
		return fmt.Errorf("%w: update period must be positive, got %v", models.ErrInvalidConfiguration, c.Monitor.UpdatePeriod)
	}
	if c.Monitor.HistorySpan <= 0 {
		return fmt.Errorf("%w: history span must be positive, got %v", models.ErrInvalidConfiguration, c.Monitor.HistorySpan)
	}
	if c.Monitor.TrafficLimit == 0 {
		return fmt.Errorf("%w: traffic limit must be positive", models.ErrInvalidConfiguration)
	}
	if c.Monitor.TopSections < 1 {
		return fmt.Errorf("%w: top sections must be positive, got %d", models.ErrInvalidConfiguration, c.Monitor.TopSections)
	}
	if c.Monitor.AlertHistorySize < 1 {
		return fmt.Errorf("%w: alert history size must be positive, got %d", models.ErrInvalidConfiguration, c.Monitor.AlertHistorySize)
	}
	if c.RedisEnabled() {
		if c.Redis.HistoryRetention <= 0 {
			return fmt.Errorf("%w: history retention must be positive, got %v", models.ErrInvalidConfiguration, c.Redis.HistoryRetention)
		}
		if c.Redis.ExportQueueSize < 1 {
			return fmt.Errorf("%w: export queue size must be positive, got %d", models.ErrInvalidConfiguration, c.Redis.ExportQueueSize)
		}
	}
	return nil
}

// RedisEnabled экспорт истории включен, если задан адрес Redis
func (c Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// getEnv получает environment variable или возвращает default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt получает environment variable как int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSeconds получает environment variable в секундах как time.Duration
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	return getEnvAsDuration(key, time.Second, defaultValue)
}

// getEnvAsMinutes получает environment variable в минутах как time.Duration
func getEnvAsMinutes(key string, defaultValue time.Duration) time.Duration {
	return getEnvAsDuration(key, time.Minute, defaultValue)
}

// getEnvAsDuration целое число единиц unit; без переменной default возвращается как есть
func getEnvAsDuration(key string, unit, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return time.Duration(value) * unit
}

// getEnvAsUint получает environment variable как uint64.
// Отрицательное значение превращается в 0 и отсекается валидацией.
func getEnvAsUint(key string, defaultValue uint64) uint64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	if value < 0 {
		return 0
	}
	return uint64(value)
}
