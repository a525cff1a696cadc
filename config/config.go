// Package config loads engine configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Durable  DurableConfig
	Kafka    KafkaConfig
	Memory   MemoryConfig
	LogLevel string
}

// ServerConfig holds the HTTP and websocket listener settings.
type ServerConfig struct {
	ListenAddr string
}

// DurableConfig holds journal, outbox, and snapshot locations.
type DurableConfig struct {
	JournalDir       string
	JournalSegment   int64
	OutboxDir        string
	SnapshotDir      string
	SnapshotInterval time.Duration
	EpochInterval    time.Duration
}

// KafkaConfig holds broker and topic settings for trade broadcast and
// market-data quotes.
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	TradeTopic        string
	QuoteTopic        string
	BroadcastInterval time.Duration
	QuoteInterval     time.Duration
}

// MemoryConfig sizes the order pool machinery.
type MemoryConfig struct {
	RetireRingSize uint64
}

// Load reads configuration from the environment. A missing .env file
// is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			ListenAddr: getEnvString("OME_LISTEN_ADDR", ":8080"),
		},
		Durable: DurableConfig{
			JournalDir:       getEnvString("OME_JOURNAL_DIR", "./data/journal"),
			JournalSegment:   getEnvInt64("OME_JOURNAL_SEGMENT_BYTES", 2*1024*1024),
			OutboxDir:        getEnvString("OME_OUTBOX_DIR", "./data/outbox"),
			SnapshotDir:      getEnvString("OME_SNAPSHOT_DIR", "./data/snapshot"),
			SnapshotInterval: getEnvDuration("OME_SNAPSHOT_INTERVAL", time.Minute),
			EpochInterval:    getEnvDuration("OME_EPOCH_INTERVAL", 2*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:           getEnvBool("OME_KAFKA_ENABLED", false),
			Brokers:           splitList(getEnvString("OME_KAFKA_BROKERS", "localhost:9092")),
			TradeTopic:        getEnvString("OME_KAFKA_TRADE_TOPIC", "trades"),
			QuoteTopic:        getEnvString("OME_KAFKA_QUOTE_TOPIC", "quotes"),
			BroadcastInterval: getEnvDuration("OME_BROADCAST_INTERVAL", 250*time.Millisecond),
			QuoteInterval:     getEnvDuration("OME_QUOTE_INTERVAL", 500*time.Millisecond),
		},
		Memory: MemoryConfig{
			RetireRingSize: uint64(getEnvInt64("OME_RETIRE_RING_SIZE", 1<<18)),
		},
		LogLevel: getEnvString("OME_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot start with.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Durable.JournalSegment <= 0 {
		return fmt.Errorf("invalid journal segment size: %d", c.Durable.JournalSegment)
	}
	if c.Durable.SnapshotInterval <= 0 {
		return fmt.Errorf("invalid snapshot interval: %s", c.Durable.SnapshotInterval)
	}
	if s := c.Memory.RetireRingSize; s == 0 || s&(s-1) != 0 {
		return fmt.Errorf("retire ring size must be a power of two: %d", s)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled but no brokers configured")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Server{Addr:%s}, Durable{Journal:%s, Outbox:%s, Snapshot:%s}, Kafka{Enabled:%v}",
		c.Server.ListenAddr, c.Durable.JournalDir, c.Durable.OutboxDir,
		c.Durable.SnapshotDir, c.Kafka.Enabled,
	)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
