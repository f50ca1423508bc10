package config

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// minProductionSecretLen is the minimum SECRET_KEY length accepted in production.
const minProductionSecretLen = 32

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	SecretKey           string        `mapstructure:"SECRET_KEY"`
	TokenTTL            time.Duration `mapstructure:"TOKEN_TTL"`
	UploadDir           string        `mapstructure:"UPLOAD_DIR"`
	MaxUploadSize       string        `mapstructure:"MAX_UPLOAD_SIZE"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	TrustedProxies      []string      `mapstructure:"TRUSTED_PROXIES"`
	AuthRateLimitRPS    float64       `mapstructure:"AUTH_RATE_LIMIT_RPS"`
	AuthRateLimitBurst  int           `mapstructure:"AUTH_RATE_LIMIT_BURST"`
	DownloadRequireAuth bool          `mapstructure:"DOWNLOAD_REQUIRE_AUTH"`
	GRPCHealthPort      string        `mapstructure:"GRPC_HEALTH_PORT"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"SECRET_KEY", "TOKEN_TTL",
	"UPLOAD_DIR", "MAX_UPLOAD_SIZE",
	"CORS_ORIGINS", "TRUSTED_PROXIES",
	"AUTH_RATE_LIMIT_RPS", "AUTH_RATE_LIMIT_BURST",
	"DOWNLOAD_REQUIRE_AUTH",
	"GRPC_HEALTH_PORT",
	"REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("UPLOAD_DIR", "./static/uploads")
	v.SetDefault("MAX_UPLOAD_SIZE", "10M")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("AUTH_RATE_LIMIT_RPS", 5)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 10)
	v.SetDefault("DOWNLOAD_REQUIRE_AUTH", false)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if proxies := v.GetString("TRUSTED_PROXIES"); proxies != "" {
		cfg.TrustedProxies = splitList(proxies)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development); error responses include internal detail.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. SECRET_KEY signs
// every access token, so it is always required and must be long enough in
// production.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.IsProduction() && len(c.SecretKey) < minProductionSecretLen {
		return fmt.Errorf("SECRET_KEY must be at least %d bytes in production, got %d", minProductionSecretLen, len(c.SecretKey))
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if _, err := ParseSize(c.MaxUploadSize); err != nil {
		return fmt.Errorf("MAX_UPLOAD_SIZE: %w", err)
	}
	if _, err := c.TrustedProxyRanges(); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// UploadLimit returns MAX_UPLOAD_SIZE in bytes.
func (c *Config) UploadLimit() int64 {
	n, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return 10 << 20
	}
	return n
}

// TrustedProxyRanges parses TRUSTED_PROXIES. Entries are CIDR ranges or
// single addresses.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, p := range c.TrustedProxies {
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("invalid address %q", p)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipnet, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q", p)
		}
		out = append(out, ipnet)
	}
	return out, nil
}
