package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (TABSPLIT_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (TABSPLIT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	PublicBaseURL string `default:"http://localhost:8080" usage:"Public base URL invite links are built against" flag:"public-base-url"`

	// DefaultTaxRate and DefaultTipRate seed receipts created without
	// explicit rates. Decimal strings, e.g. "0.0925".
	DefaultTaxRate string `default:"0.0925" usage:"Default tax rate for new receipts" flag:"default-tax-rate"`
	DefaultTipRate string `default:"0.18"   usage:"Default tip rate for new receipts" flag:"default-tip-rate"`

	// BlocklistPath points at a bloom filter of disposable e-mail domains
	// written by blocklist-ingest. Empty disables invite domain screening.
	BlocklistPath string `default:"" usage:"Path to disposable e-mail domain bloom filter" flag:"blocklist-path"`

	Extract   ExtractConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// ExtractConfig selects and configures the line-item extraction backend.
type ExtractConfig struct {
	// Mode is "stub" (canned items, no AWS) or "live" (Textract).
	Mode   string `default:"stub" usage:"Extraction backend: stub or live"`
	Bucket string `default:""     usage:"S3 bucket receipt images are uploaded to"`
	Region string `default:""     usage:"AWS region for S3 and Textract"`
}

// UploadConfig controls presigned upload URL issuance.
type UploadConfig struct {
	Expiry time.Duration `default:"15m" usage:"Presigned upload URL lifetime"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TABSPLIT",
		Files:     []string{"config.yaml", "/etc/tabsplit/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set TABSPLIT_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Extract.Mode != "stub" && cfg.Extract.Mode != "live" {
		return nil, errors.Errorf("unknown extract mode %q: want stub or live", cfg.Extract.Mode)
	}
	if cfg.Extract.Mode == "live" && cfg.Extract.Bucket == "" {
		return nil, errors.New("extract bucket is required in live mode")
	}
	return &cfg, nil
}

// Rates parses the configured default tax and tip rates.
func (c *Config) Rates() (taxRate, tipRate decimal.Decimal, err error) {
	taxRate, err = decimal.NewFromString(c.DefaultTaxRate)
	if err != nil {
		return taxRate, tipRate, errors.Wrapf(err, "parse default tax rate %q", c.DefaultTaxRate)
	}
	tipRate, err = decimal.NewFromString(c.DefaultTipRate)
	if err != nil {
		return taxRate, tipRate, errors.Wrapf(err, "parse default tip rate %q", c.DefaultTipRate)
	}
	return taxRate, tipRate, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's TABSPLIT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
