// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database access, the purchase ledger
// policy, notification delivery, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "affiliate-ledger")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SMTPConfig holds outbound mail settings, read from SMTP_* variables.
// An empty Host means mail is written to the log instead of being sent.
type SMTPConfig struct {
	Host string `desc:"SMTP relay host"`
	Port int    `desc:"SMTP relay port" default:"587"`
	User string `desc:"SMTP auth user"`
	Pass string `desc:"SMTP auth password"`
	From string `desc:"sender address" default:"no-reply@affiliate-ledger.local"`
}

// LedgerConfig controls purchase validation and the revenue split.
type LedgerConfig struct {
	IdempotencyKeyMinLen int             // IDEMPOTENCY_KEY_MIN_LEN
	MaxQuantity          int64           // PURCHASE_MAX_QUANTITY
	InfluencerRate       decimal.Decimal // SPLIT_INFLUENCER_RATE
	PlatformRate         decimal.Decimal // SPLIT_PLATFORM_RATE
}

// NotifyConfig sizes the background notification dispatcher.
type NotifyConfig struct {
	Workers     int           // NOTIFY_WORKERS
	QueueSize   int           // NOTIFY_QUEUE_SIZE
	SendTimeout time.Duration // NOTIFY_SEND_TIMEOUT
	BaseURL     string        // APP_BASE_URL, used for links in mail bodies
	CompanyURL  string        // derived: BaseURL + APIBasePath + "/company/purchases"
	BuyerURL    string        // derived: BaseURL + APIBasePath + "/me/purchases"
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Database
	DBDriver       string // sqlite|postgres
	DBPath         string // SQLite path
	DatabaseURL    string // Postgres DSN, required when DBDriver=postgres
	DBMaxOpenConns int    // ledger pool size; 1 serializes SQLite writers

	// Identity
	JWTSecret       string // HS256 secret for bearer tokens; empty disables JWT
	AllowUserHeader bool   // accept X-User-ID as identity (dev/test)

	// Ledger
	Ledger LedgerConfig

	// Notifications
	Notify NotifyConfig
	SMTP   SMTPConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver:       strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:         getenv("DB_PATH", "ledger.db"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		DBMaxOpenConns: getint("DB_MAX_OPEN_CONNS", 1),

		// Identity
		JWTSecret:       getenv("JWT_SECRET", ""),
		AllowUserHeader: getbool("ALLOW_USER_HEADER", true),

		// Ledger
		Ledger: LedgerConfig{
			IdempotencyKeyMinLen: getint("IDEMPOTENCY_KEY_MIN_LEN", 10),
			MaxQuantity:          int64(getint("PURCHASE_MAX_QUANTITY", 1000)),
			InfluencerRate:       getdecimal("SPLIT_INFLUENCER_RATE", "0.10"),
			PlatformRate:         getdecimal("SPLIT_PLATFORM_RATE", "0.10"),
		},

		// Notifications
		Notify: NotifyConfig{
			Workers:     getint("NOTIFY_WORKERS", 2),
			QueueSize:   getint("NOTIFY_QUEUE_SIZE", 256),
			SendTimeout: getdur("NOTIFY_SEND_TIMEOUT", 30*time.Second),
			BaseURL:     strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "affiliate-ledger"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if err := envconfig.Process("SMTP", &cfg.SMTP); err != nil {
		return cfg, errors.New("SMTP settings invalid: " + err.Error())
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}
	apiRoot := cfg.Notify.BaseURL + strings.TrimSuffix(cfg.APIBasePath, "/")
	cfg.Notify.CompanyURL = apiRoot + "/company/purchases"
	cfg.Notify.BuyerURL = apiRoot + "/me/purchases"

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.DBMaxOpenConns < 1 {
		return cfg, errors.New("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if cfg.Ledger.IdempotencyKeyMinLen < 1 || cfg.Ledger.IdempotencyKeyMinLen > 200 {
		return cfg, errors.New("IDEMPOTENCY_KEY_MIN_LEN must be in [1,200]")
	}
	if cfg.Ledger.MaxQuantity < 1 {
		return cfg, errors.New("PURCHASE_MAX_QUANTITY must be >= 1")
	}
	if !validRate(cfg.Ledger.InfluencerRate) || !validRate(cfg.Ledger.PlatformRate) {
		return cfg, errors.New("SPLIT_INFLUENCER_RATE and SPLIT_PLATFORM_RATE must be in [0,1)")
	}
	if !cfg.Ledger.InfluencerRate.Add(cfg.Ledger.PlatformRate).LessThan(decimal.NewFromInt(1)) {
		return cfg, errors.New("split rates must sum to less than 1")
	}
	if cfg.Notify.Workers < 1 {
		return cfg, errors.New("NOTIFY_WORKERS must be >= 1")
	}
	if cfg.Notify.QueueSize < 1 {
		return cfg, errors.New("NOTIFY_QUEUE_SIZE must be >= 1")
	}
	if cfg.Notify.SendTimeout <= 0 {
		return cfg, errors.New("NOTIFY_SEND_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// getdecimal parses rates exactly; def must be a valid decimal literal.
func getdecimal(k, def string) decimal.Decimal {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(def)
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func validRate(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(decimal.NewFromInt(1))
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
