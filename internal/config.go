package internal

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	BaseURL        string `mapstructure:"base_url"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is believed.
	TrustedProxies    string        `mapstructure:"trusted_proxies"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret  string `mapstructure:"access_token_secret" validate:"required"`
	RefreshTokenSecret string `mapstructure:"refresh_token_secret" validate:"required"`
	AccessTokenTTL     string `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    string `mapstructure:"refresh_token_ttl"`
	PasswordResetTTL   string `mapstructure:"password_reset_ttl"`
	PasswordResetURL   string `mapstructure:"password_reset_url"`
	BCryptCost         int    `mapstructure:"bcrypt_cost" validate:"min=4,max=15"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "memory" or "redis".
	Backend        string        `mapstructure:"backend"`
	Window         time.Duration `mapstructure:"window"`
	Login          int           `mapstructure:"login"`
	Refresh        int           `mapstructure:"refresh"`
	ForgotPassword int           `mapstructure:"forgot_password"`
	ResetPassword  int           `mapstructure:"reset_password"`
	MaxKeys        int           `mapstructure:"max_keys"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv builds the configuration from plain environment variables.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			TrustedProxies:    getEnv("TRUSTED_PROXIES", ""),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:  getEnv("JWT_ACCESS_SECRET", ""),
			RefreshTokenSecret: getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenTTL:     getEnv("JWT_ACCESS_EXPIRATION", "15m"),
			RefreshTokenTTL:    getEnv("JWT_REFRESH_EXPIRATION", "7d"),
			PasswordResetTTL:   getEnv("PASSWORD_RESET_EXPIRATION", "15m"),
			PasswordResetURL:   getEnv("PASSWORD_RESET_URL", ""),
			BCryptCost:         getEnvAsInt("BCRYPT_COST", 10),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			Backend:        getEnv("RATE_LIMIT_BACKEND", "memory"),
			Window:         getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			Login:          getEnvAsInt("RATE_LIMIT_LOGIN", 5),
			Refresh:        getEnvAsInt("RATE_LIMIT_REFRESH", 10),
			ForgotPassword: getEnvAsInt("RATE_LIMIT_FORGOT_PASSWORD", 3),
			ResetPassword:  getEnvAsInt("RATE_LIMIT_RESET_PASSWORD", 5),
			MaxKeys:        getEnvAsInt("RATE_LIMIT_MAX_KEYS", 10000),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ParseCIDRList parses a comma separated list of CIDRs or bare IPs. A bare IP
// becomes a single-address network.
func ParseCIDRList(list string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return nil, fmt.Errorf("invalid address %q", item)
			}
			bits := 128
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(item)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", item, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.RateLimit.Validate(c.Redis); err != nil {
		errs = append(errs, fmt.Sprintf("rate limit config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if _, err := ParseCIDRList(c.TrustedProxies); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

// Validate rejects missing secrets and unparseable lifetimes at boot.
func (c *SecurityConfig) Validate() error {
	var errs []string

	if c.AccessTokenSecret == "" {
		errs = append(errs, "access_token_secret is required")
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, "refresh_token_secret is required")
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, "access and refresh token secrets must differ")
	}

	for name, value := range map[string]string{
		"access_token_ttl":   c.AccessTokenTTL,
		"refresh_token_ttl":  c.RefreshTokenTTL,
		"password_reset_ttl": c.PasswordResetTTL,
	} {
		if value == "" {
			continue
		}
		if _, err := ParseTTL(value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if c.BCryptCost != 0 && (c.BCryptCost < 4 || c.BCryptCost > 15) {
		errs = append(errs, "bcrypt_cost must be between 4 and 15")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, ", "))
	}
	return nil
}

func (c *RateLimitConfig) Validate(redis RedisConfig) error {
	if !c.Enabled {
		return nil
	}
	switch c.Backend {
	case "", "memory":
	case "redis":
		if redis.Addr == "" {
			return errors.New("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
