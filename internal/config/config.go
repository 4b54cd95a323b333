package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	Push      PushConfig
	Upload    UploadConfig
	Scheduler SchedulerConfig

	// SeedSampleData loads the demo store and catalog after migrations.
	// Ignored in production.
	SeedSampleData bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// JoinRatePerMinute bounds invite-code joins per client IP.
	JoinRatePerMinute int
	JoinBurst         int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type PushConfig struct {
	Provider string
	Endpoint string
	Token    string
	Timeout  time.Duration
}

type UploadConfig struct {
	Dir       string
	PublicURL string
	MaxBytes  int64
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	// Jobs limits the scheduler to the named jobs; empty runs all of them.
	Jobs             []string
	LockTTL          time.Duration
	ReceiptRetention time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "shelflife"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "shelflife"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Addr:              strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:          getenv("REDIS_PASSWORD", ""),
			DB:                getenvInt("REDIS_DB", 0),
			JoinRatePerMinute: getenvInt("REDIS_JOIN_RATE_PER_MINUTE", 10),
			JoinBurst:         getenvInt("REDIS_JOIN_BURST", 5),
		},
		Push: PushConfig{
			Provider: strings.ToLower(getenv("PUSH_PROVIDER", "noop")),
			Endpoint: strings.TrimSpace(getenv("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send")),
			Token:    strings.TrimSpace(getenv("PUSH_ACCESS_TOKEN", "")),
			Timeout:  getenvDuration("PUSH_TIMEOUT", 10*time.Second),
		},
		Upload: UploadConfig{
			Dir:       getenv("UPLOAD_DIR", "./uploads"),
			PublicURL: strings.TrimRight(getenv("UPLOAD_PUBLIC_URL", "/uploads"), "/"),
			MaxBytes:  getenvInt64("UPLOAD_MAX_BYTES", 5<<20),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getenvBool("SCHEDULER_ENABLED", true),
			Interval:         getenvDuration("SCHEDULER_INTERVAL", time.Minute),
			Jobs:             getenvList("SCHEDULER_JOBS"),
			LockTTL:          getenvDuration("SCHEDULER_LOCK_TTL", 5*time.Minute),
			ReceiptRetention: getenvDuration("SCHEDULER_RECEIPT_RETENTION", 30*24*time.Hour),
		},
		SeedSampleData: getenvBool("SEED_SAMPLE_DATA", false),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
