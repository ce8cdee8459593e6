package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MinWebhookSecretLen is the shortest accepted webhook secret.
const MinWebhookSecretLen = 16

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Env                 string
	ListenAddr          string
	RPCURL              string
	WSURL               string
	WebhookSecret       string
	PostgresDSN         string
	ClickhouseDSN       string
	KafkaBrokers        []string
	KafkaTopic          string
	QueueConcurrency    int
	MaxLaunchesResponse int
	RPCTimeout          time.Duration
	RPCMaxRetries       int
	LogLevel            string
	LogFormat           string
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the RADAR_ prefix, e.g. RADAR_RPC_URL.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("listen-addr", ":3000")
	v.SetDefault("kafka-topic", "pump-radar.events")
	v.SetDefault("queue-concurrency", 3)
	v.SetDefault("max-launches-response", 100)
	v.SetDefault("rpc-timeout", 30*time.Second)
	v.SetDefault("rpc-max-retries", 3)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "json")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("radar")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Env:                 v.GetString("env"),
		ListenAddr:          v.GetString("listen-addr"),
		RPCURL:              v.GetString("rpc-url"),
		WSURL:               v.GetString("ws-url"),
		WebhookSecret:       v.GetString("webhook-secret"),
		PostgresDSN:         v.GetString("postgres-dsn"),
		ClickhouseDSN:       v.GetString("clickhouse-dsn"),
		KafkaBrokers:        getStringSlice(v, "kafka-brokers"),
		KafkaTopic:          v.GetString("kafka-topic"),
		QueueConcurrency:    v.GetInt("queue-concurrency"),
		MaxLaunchesResponse: v.GetInt("max-launches-response"),
		RPCTimeout:          v.GetDuration("rpc-timeout"),
		RPCMaxRetries:       v.GetInt("rpc-max-retries"),
		LogLevel:            v.GetString("log-level"),
		LogFormat:           v.GetString("log-format"),
	}

	return cfg, nil
}

// Validate checks the values the server cannot start without.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(c.WebhookSecret) < MinWebhookSecretLen {
		return fmt.Errorf("webhook secret must be at least %d characters", MinWebhookSecretLen)
	}
	if c.QueueConcurrency < 1 {
		return fmt.Errorf("queue concurrency must be >= 1, got %d", c.QueueConcurrency)
	}
	if c.MaxLaunchesResponse < 1 {
		return fmt.Errorf("max launches response must be >= 1, got %d", c.MaxLaunchesResponse)
	}
	switch c.Env {
	case "development", "production", "test":
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}
	return nil
}

// UseMemoryStore reports whether no Postgres DSN was configured.
func (c Config) UseMemoryStore() bool {
	return c.PostgresDSN == ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
