package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Process is the engine-wide process configuration: where the database and
// queue broker live, how many runs a worker processes concurrently, and
// the default per-request HTTP timeout.
type Process struct {
	PostgresDSN        string
	RedisAddr          string
	WorkerConcurrency  int
	LogLevel           string
	DefaultHTTPTimeout time.Duration
}

// LoadProcess reads Process configuration from a config file at path (if
// non-empty) and from environment variables prefixed HYDRAFROG_, which
// take precedence over the file. Unset values fall back to
// local-development defaults.
func LoadProcess(path string) (Process, error) {
	v := viper.New()
	v.SetEnvPrefix("hydrafrog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("postgres_dsn", "postgres://localhost:5432/hydrafrog?sslmode=disable")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("worker_concurrency", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("default_http_timeout", 30*time.Second)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Process{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return Process{
		PostgresDSN:        v.GetString("postgres_dsn"),
		RedisAddr:          v.GetString("redis_addr"),
		WorkerConcurrency:  v.GetInt("worker_concurrency"),
		LogLevel:           v.GetString("log_level"),
		DefaultHTTPTimeout: v.GetDuration("default_http_timeout"),
	}, nil
}
