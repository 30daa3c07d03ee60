package config

import (
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// Keep the host environment out of Load.
func TestMain(m *testing.M) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "GIN_MODE", "API_BASE_PATH",
		"DB_DRIVER", "DB_PATH", "DATABASE_URL", "DB_MAX_OPEN_CONNS",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM",
		"SPLIT_INFLUENCER_RATE", "SPLIT_PLATFORM_RATE", "APP_BASE_URL",
	} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("server defaults: %+v", cfg)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBPath != "ledger.db" || cfg.DBMaxOpenConns != 1 {
		t.Fatalf("database defaults: driver=%s path=%s conns=%d", cfg.DBDriver, cfg.DBPath, cfg.DBMaxOpenConns)
	}

	tenPct := decimal.RequireFromString("0.10")
	l := cfg.Ledger
	if l.IdempotencyKeyMinLen != 10 || l.MaxQuantity != 1000 || !l.InfluencerRate.Equal(tenPct) || !l.PlatformRate.Equal(tenPct) {
		t.Fatalf("ledger defaults: %+v", l)
	}

	n := cfg.Notify
	if n.Workers != 2 || n.QueueSize != 256 || n.SendTimeout != 30*time.Second {
		t.Fatalf("notify defaults: %+v", n)
	}
	if n.CompanyURL != "http://localhost:8080/api/v1/company/purchases" || n.BuyerURL != "http://localhost:8080/api/v1/me/purchases" {
		t.Fatalf("notify links: %+v", n)
	}
	if cfg.SMTP.Host != "" || cfg.SMTP.Port != 587 || cfg.SMTP.From == "" {
		t.Fatalf("smtp defaults: %+v", cfg.SMTP)
	}
	if !cfg.AllowUserHeader || cfg.JWTSecret != "" {
		t.Fatalf("identity defaults: header=%v secret=%q", cfg.AllowUserHeader, cfg.JWTSecret)
	}
	if cfg.RateRPS != 5 || cfg.RateBurst != 10 || cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 1 {
		t.Fatalf("edge/otel defaults: rps=%v burst=%d otel=%+v", cfg.RateRPS, cfg.RateBurst, cfg.OTEL)
	}
}

func TestLoad_LedgerAndDelivery(t *testing.T) {
	env := map[string]string{
		"DB_MAX_OPEN_CONNS":       "4",
		"IDEMPOTENCY_KEY_MIN_LEN": "16",
		"PURCHASE_MAX_QUANTITY":   "50",
		"SPLIT_INFLUENCER_RATE":   " 0.15 ",
		"SPLIT_PLATFORM_RATE":     "bogus",
		"NOTIFY_WORKERS":          "3",
		"NOTIFY_QUEUE_SIZE":       "9",
		"NOTIFY_SEND_TIMEOUT":     "5s",
		"APP_BASE_URL":            "https://shop.example/",
		"SMTP_HOST":               "smtp.example",
		"SMTP_PORT":               "2525",
		"SMTP_USER":               "mailer",
		"SMTP_FROM":               "orders@shop.example",
		"JWT_SECRET":              "s3cret",
		"ALLOW_USER_HEADER":       "off",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBMaxOpenConns != 4 || cfg.Ledger.IdempotencyKeyMinLen != 16 || cfg.Ledger.MaxQuantity != 50 {
		t.Fatalf("ledger sizing: conns=%d %+v", cfg.DBMaxOpenConns, cfg.Ledger)
	}
	// A malformed rate keeps the default rather than failing startup.
	if got := cfg.Ledger.InfluencerRate.String() + "/" + cfg.Ledger.PlatformRate.String(); got != "0.15/0.1" {
		t.Fatalf("rates = %s", got)
	}
	if cfg.Notify.Workers != 3 || cfg.Notify.QueueSize != 9 || cfg.Notify.SendTimeout != 5*time.Second {
		t.Fatalf("notify sizing: %+v", cfg.Notify)
	}
	if cfg.Notify.BaseURL != "https://shop.example" || cfg.Notify.BuyerURL != "https://shop.example/api/v1/me/purchases" {
		t.Fatalf("notify links: %+v", cfg.Notify)
	}
	want := SMTPConfig{Host: "smtp.example", Port: 2525, User: "mailer", From: "orders@shop.example"}
	if cfg.SMTP != want {
		t.Fatalf("smtp = %+v, want %+v", cfg.SMTP, want)
	}
	if cfg.JWTSecret != "s3cret" || cfg.AllowUserHeader {
		t.Fatalf("identity: secret=%q header=%v", cfg.JWTSecret, cfg.AllowUserHeader)
	}
}

func TestLoad_Normalization(t *testing.T) {
	t.Setenv("GIN_MODE", "Loud")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("API_BASE_PATH", "ledger/v2/")
	t.Setenv("DB_DRIVER", "PostgreSQL")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/ledger?sslmode=disable")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://shop.example , ,http://localhost:3000 ")
	t.Setenv("ENABLE_HSTS", "yes")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "no")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" || cfg.LogLevel != "warn" || cfg.APIBasePath != "/ledger/v2" {
		t.Fatalf("mode=%q level=%q base=%q", cfg.GinMode, cfg.LogLevel, cfg.APIBasePath)
	}
	// Mail links follow the mounted API prefix and the real route paths.
	if cfg.Notify.CompanyURL != "http://localhost:8080/ledger/v2/company/purchases" ||
		cfg.Notify.BuyerURL != "http://localhost:8080/ledger/v2/me/purchases" {
		t.Fatalf("notify links = %q %q", cfg.Notify.CompanyURL, cfg.Notify.BuyerURL)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("driver alias not folded: %q", cfg.DBDriver)
	}
	if !slices.Equal(cfg.CORS.AllowedOrigins, []string{"https://shop.example", "http://localhost:3000"}) {
		t.Fatalf("origins = %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security = %+v", cfg.Security)
	}
	if cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("otel = %+v", cfg.OTEL)
	}
}

func TestLoad_NotifyLinksAtRootBasePath(t *testing.T) {
	t.Setenv("API_BASE_PATH", "/")
	t.Setenv("APP_BASE_URL", "https://shop.example")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notify.CompanyURL != "https://shop.example/company/purchases" ||
		cfg.Notify.BuyerURL != "https://shop.example/me/purchases" {
		t.Fatalf("notify links = %q %q", cfg.Notify.CompanyURL, cfg.Notify.BuyerURL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"blank port", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"zero header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"blank db path", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "DB_DRIVER"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"empty pool", map[string]string{"DB_MAX_OPEN_CONNS": "0"}, "DB_MAX_OPEN_CONNS"},
		{"key min length 0", map[string]string{"IDEMPOTENCY_KEY_MIN_LEN": "0"}, "IDEMPOTENCY_KEY_MIN_LEN"},
		{"key min length above max", map[string]string{"IDEMPOTENCY_KEY_MIN_LEN": "201"}, "IDEMPOTENCY_KEY_MIN_LEN"},
		{"max quantity 0", map[string]string{"PURCHASE_MAX_QUANTITY": "0"}, "PURCHASE_MAX_QUANTITY"},
		{"negative rate", map[string]string{"SPLIT_INFLUENCER_RATE": "-0.1"}, "SPLIT_INFLUENCER_RATE"},
		{"rate of one", map[string]string{"SPLIT_PLATFORM_RATE": "1"}, "SPLIT_PLATFORM_RATE"},
		{"rates sum to one or more", map[string]string{"SPLIT_INFLUENCER_RATE": "0.6", "SPLIT_PLATFORM_RATE": "0.5"}, "sum"},
		{"no workers", map[string]string{"NOTIFY_WORKERS": "0"}, "NOTIFY_WORKERS"},
		{"no queue", map[string]string{"NOTIFY_QUEUE_SIZE": "0"}, "NOTIFY_QUEUE_SIZE"},
		{"zero send timeout", map[string]string{"NOTIFY_SEND_TIMEOUT": "0s"}, "NOTIFY_SEND_TIMEOUT"},
		{"smtp port not a number", map[string]string{"SMTP_PORT": "abc"}, "SMTP"},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"negative hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"sample ratio above one", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestMustLoad(t *testing.T) {
	if cfg := MustLoad(); cfg.Port == "" {
		t.Fatal("MustLoad returned empty config")
	}

	t.Setenv("PURCHASE_MAX_QUANTITY", "-5")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad did not panic on invalid config")
		}
	}()
	MustLoad()
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("G_EMPTY", "")
	t.Setenv("G_STR", "val")
	t.Setenv("G_INT", "42")
	t.Setenv("G_FLOAT", "0.5")
	t.Setenv("G_DUR", "150ms")
	t.Setenv("G_DEC", "0.125")
	t.Setenv("G_BAD", "zz")

	if getenv("G_EMPTY", "d") != "d" || getenv("G_STR", "d") != "val" {
		t.Fatal("getenv")
	}
	if getint("G_INT", 0) != 42 || getint("G_BAD", 7) != 7 {
		t.Fatal("getint")
	}
	if getfloat("G_FLOAT", 0) != 0.5 || getfloat("G_BAD", 1.5) != 1.5 {
		t.Fatal("getfloat")
	}
	if getdur("G_DUR", 0) != 150*time.Millisecond || getdur("G_BAD", time.Second) != time.Second {
		t.Fatal("getdur")
	}
	if getdecimal("G_DEC", "0").String() != "0.125" || getdecimal("G_BAD", "0.2").String() != "0.2" {
		t.Fatal("getdecimal")
	}

	for v, want := range map[string]bool{"1": true, " Yes ": true, "ON": true, "0": false, "n": false, "Off": false} {
		t.Setenv("G_BOOL", v)
		if getbool("G_BOOL", !want) != want {
			t.Fatalf("getbool(%q) != %v", v, want)
		}
	}
	t.Setenv("G_BOOL", "maybe")
	if !getbool("G_BOOL", true) {
		t.Fatal("getbool must keep default on unknown value")
	}
}

func TestSplitCSVAndBasePath(t *testing.T) {
	if splitCSV("") != nil {
		t.Fatal("splitCSV(\"\") must be nil")
	}
	if got := splitCSV(" a, ,b ,"); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	for in, want := range map[string]string{"": "/", " / ": "/", "v1": "/v1", "/v1//": "/v1", "/api/v1": "/api/v1"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
