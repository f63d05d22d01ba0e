// Package config loads simulator configuration from environment
// variables with defaults, including the latency profile expressed in
// the duration literal grammar (e.g. "50us", "20ms").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// Config holds configuration for a simulation run.
type Config struct {
	// Service name, stamped on every log line.
	ServiceName string

	// Log level: debug, info, warn, error
	LogLevel string

	// Latency profile for every simulated hop.
	MarketDataFeedLatency     time.Duration
	StrategyProcessingLatency time.Duration
	OrderNetworkLatency       time.Duration
	ExchangeAckLatency        time.Duration
	ExchangeFillLatency       time.Duration
	AckNetworkLatency         time.Duration

	// Optional deterministic jitter layered on top of each latency hop.
	JitterEnabled bool
	JitterSeed    int64
	JitterMax     time.Duration

	// Per-strategy inbound queue capacity (0 = unbounded).
	StrategyQueueSize int

	// Incoming order-request queue capacity (0 = unbounded).
	OrderRequestQueueSize int

	// Strategy roster, comma-separated registered names.
	Strategies []string

	// Metrics output files.
	TradesFile  string
	LatencyFile string
	PnLFile     string

	// Optional SQLite results store ("" disables it).
	MetricsDB string

	// Optional Kafka trade publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadConfig loads configuration from environment variables with defaults.
func LoadConfig(serviceName string) (*Config, error) {
	cfg := &Config{
		ServiceName:           serviceName,
		LogLevel:              getEnvAsString("LOG_LEVEL", "info"),
		JitterEnabled:         getEnvAsBool("LATENCY_JITTER_ENABLED", false),
		JitterSeed:            int64(getEnvAsInt("LATENCY_JITTER_SEED", 1)),
		StrategyQueueSize:     getEnvAsInt("STRATEGY_QUEUE_SIZE", 10000),
		OrderRequestQueueSize: getEnvAsInt("ORDER_REQUEST_QUEUE_SIZE", 0),
		Strategies:            getEnvAsList("STRATEGIES", "basic"),
		TradesFile:            getEnvAsString("TRADES_FILE", "sim_trades.csv"),
		LatencyFile:           getEnvAsString("LATENCY_FILE", "sim_latency.csv"),
		PnLFile:               getEnvAsString("PNL_FILE", "sim_pnl.csv"),
		MetricsDB:             getEnvAsString("METRICS_DB", ""),
		KafkaEnabled:          getEnvAsBool("KAFKA_ENABLED", false),
		KafkaBrokers:          getEnvAsList("KAFKA_BROKERS", "127.0.0.1:9092"),
		KafkaTopic:            getEnvAsString("KAFKA_TOPIC", "sim.trades"),
	}

	var err error
	if cfg.MarketDataFeedLatency, err = getEnvAsDuration("MARKET_DATA_FEED_LATENCY", "50us"); err != nil {
		return nil, err
	}
	if cfg.StrategyProcessingLatency, err = getEnvAsDuration("STRATEGY_PROCESSING_LATENCY", "5us"); err != nil {
		return nil, err
	}
	if cfg.OrderNetworkLatency, err = getEnvAsDuration("ORDER_NETWORK_LATENCY", "20us"); err != nil {
		return nil, err
	}
	if cfg.ExchangeAckLatency, err = getEnvAsDuration("EXCHANGE_ACK_LATENCY", "10us"); err != nil {
		return nil, err
	}
	if cfg.ExchangeFillLatency, err = getEnvAsDuration("EXCHANGE_FILL_LATENCY", "15us"); err != nil {
		return nil, err
	}
	if cfg.AckNetworkLatency, err = getEnvAsDuration("ACK_NETWORK_LATENCY", "20us"); err != nil {
		return nil, err
	}
	if cfg.JitterMax, err = getEnvAsDuration("LATENCY_JITTER_MAX", "0"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnvAsString(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key, defaultValue string) (time.Duration, error) {
	raw := getEnvAsString(key, defaultValue)
	d, err := simtime.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return d, nil
}
