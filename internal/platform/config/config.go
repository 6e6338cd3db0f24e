package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	BusMemory = "memory"
	BusKafka  = "kafka"
)

// Supported ELD vendors, in the order they are listed to callers.
const (
	VendorMotive    = "motive"
	VendorSamsara   = "samsara"
	VendorOmnitracs = "omnitracs"
)

// DefaultVendorTimeout bounds a single vendor HOS call.
const DefaultVendorTimeout = 30 * time.Second

// Config is the full process configuration, loaded once at start.
type Config struct {
	Server    Server
	Log       Log
	Storage   Storage
	Redis     RedisConfig
	Bus       Bus
	Providers map[string]EldProviderConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

type Log struct {
	Level  string
	Format string
}

type Storage struct {
	Mode        string
	DatabaseURL string
}

// RedisConfig is optional; an empty URL disables Redis-backed dedupe.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DedupeTTL    time.Duration
}

// Bus configures the message bus. Topic names are configuration, not contracts.
type Bus struct {
	Mode              string
	Brokers           []string
	ConsumerGroup     string
	EldTopic          string
	PositionTopic     string
	DriverEventsTopic string
	Producer          string
	ProduceTimeout    time.Duration
	Partitions        int32
	ReplicationFactor int16
}

// EldProviderConfig is static per-vendor configuration. Treat as immutable.
type EldProviderConfig struct {
	Name      string
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

var defaultVendorURLs = map[string]string{
	VendorMotive:    "https://api.gomotive.com",
	VendorSamsara:   "https://api.samsara.com",
	VendorOmnitracs: "https://api.omnitracs.com",
}

// SupportedVendors lists vendor names with a registered adapter.
func SupportedVendors() []string {
	return []string{VendorMotive, VendorSamsara, VendorOmnitracs}
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from HOSLINK_* environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Server: Server{Addr: getEnv("HOSLINK_ADDR", ":8080")},
		Log: Log{
			Level:  getEnv("HOSLINK_LOG_LEVEL", "info"),
			Format: getEnv("HOSLINK_LOG_FORMAT", "json"),
		},
		Storage: Storage{
			Mode:        getEnv("HOSLINK_STORAGE", StorageMemory),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("HOSLINK_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("HOSLINK_REDIS_MIN_IDLE", 2),
			DialTimeout:  getDuration("HOSLINK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("HOSLINK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("HOSLINK_REDIS_WRITE_TIMEOUT", 3*time.Second),
			DedupeTTL:    getDuration("HOSLINK_DEDUPE_TTL", 24*time.Hour),
		},
		Bus: Bus{
			Mode:              getEnv("HOSLINK_BUS", BusMemory),
			Brokers:           splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			ConsumerGroup:     getEnv("HOSLINK_CONSUMER_GROUP", "hoslink-engine"),
			EldTopic:          getEnv("HOSLINK_TOPIC_ELD", "eld.events"),
			PositionTopic:     getEnv("HOSLINK_TOPIC_POSITION", "position.updates"),
			DriverEventsTopic: getEnv("HOSLINK_TOPIC_DRIVER_EVENTS", "driver.events"),
			Producer:          getEnv("HOSLINK_PRODUCER_NAME", "hos-engine"),
			ProduceTimeout:    getDuration("HOSLINK_PRODUCE_TIMEOUT", 5*time.Second),
			Partitions:        int32(getInt("HOSLINK_TOPIC_PARTITIONS", 12)),
			ReplicationFactor: int16(getInt("HOSLINK_TOPIC_REPLICATION", 1)),
		},
		Providers: make(map[string]EldProviderConfig, len(defaultVendorURLs)),
	}

	for _, name := range SupportedVendors() {
		prefix := "HOSLINK_ELD_" + strings.ToUpper(name) + "_"
		cfg.Providers[name] = EldProviderConfig{
			Name:      name,
			BaseURL:   getEnv(prefix+"URL", defaultVendorURLs[name]),
			APIKey:    os.Getenv(prefix + "API_KEY"),
			APISecret: os.Getenv(prefix + "API_SECRET"),
			Timeout:   getDuration(prefix+"TIMEOUT", DefaultVendorTimeout),
		}
	}
	return cfg
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Mode {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage mode %q", c.Storage.Mode))
	}
	switch c.Bus.Mode {
	case BusMemory:
	case BusKafka:
		if len(c.Bus.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for kafka bus"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown bus mode %q", c.Bus.Mode))
	}
	if c.Bus.ProduceTimeout <= 0 {
		errs = append(errs, errors.New("produce timeout must be positive"))
	}
	for name, p := range c.Providers {
		if p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("eld provider %s: base URL is required", name))
		}
		if p.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("eld provider %s: timeout must be positive", name))
		}
	}
	return errors.Join(errs...)
}

// Provider looks up a vendor's configuration by name.
func (c Config) Provider(name string) (EldProviderConfig, bool) {
	p, ok := c.Providers[strings.ToLower(name)]
	return p, ok
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
