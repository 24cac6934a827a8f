// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	JWT          JWTConfig          `koanf:"jwt"`
	Registration RegistrationConfig `koanf:"registration"`
	Mail         MailConfig         `koanf:"mail"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RegistrationConfig struct {
	// SessionTTL bounds the window between signup and OTP verification.
	// The mail template promises five minutes; keep these in sync.
	SessionTTL time.Duration `koanf:"session_ttl"`
}

type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	// Driver selects "smtp" or "log"; "log" writes the OTP to the
	// application log instead of sending, for local development.
	Driver string `koanf:"driver"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg *Config
	mu  sync.Mutex
)

// Load parses configuration and memoizes the result. Only a successful
// load is memoized; a caller that failed once can fix the environment
// and call again.
func Load(configPath string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if cfg != nil {
		return cfg, nil
	}

	loaded, err := load(configPath)
	if err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	loaded := &Config{}
	if err := k.Unmarshal("", loaded); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(loaded); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return loaded, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "StockEase",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "stockease",
		"jwt.audience":             "stockease-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"registration.session_ttl": "5m",

		"mail.driver": "log",
		"mail.port":   587,
		"mail.from":   "no-reply@stockease.dev",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "stockease",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":             "database.url",
	"REDIS_URL":                "redis.url",
	"ENVIRONMENT":              "app.environment",
	"HOST":                     "server.host",
	"PORT":                     "server.port",
	"LOG_LEVEL":                "log.level",
	"LOG_FORMAT":               "log.format",
	"JWT_PRIVATE_KEY_PATH":     "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":      "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":  "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE": "jwt.refresh_token_expire",
	"JWT_ISSUER":               "jwt.issuer",
	"JWT_AUDIENCE":             "jwt.audience",
	"REGISTRATION_SESSION_TTL": "registration.session_ttl",
	"MAIL_DRIVER":              "mail.driver",
	"MAIL_HOST":                "mail.host",
	"MAIL_PORT":                "mail.port",
	"MAIL_USERNAME":            "mail.username",
	"MAIL_PASSWORD":            "mail.password",
	"MAIL_FROM":                "mail.from",
	"RATE_LIMIT_REQUESTS":      "rate_limit.requests",
	"RATE_LIMIT_WINDOW":        "rate_limit.window",
	"RATE_LIMIT_BURST":         "rate_limit.burst",
	"OTEL_ENDPOINT":            "otel.endpoint",
	"OTEL_SERVICE_NAME":        "otel.service_name",
	"OTEL_ENABLED":             "otel.enabled",
	"OTEL_INSECURE":            "otel.insecure",
	"OTEL_SAMPLE_RATE":         "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.Registration.SessionTTL <= 0 {
		return fmt.Errorf("registration.session_ttl must be positive")
	}

	if c.Mail.Driver != "smtp" && c.Mail.Driver != "log" {
		return fmt.Errorf("mail.driver must be \"smtp\" or \"log\"")
	}

	if c.Mail.Driver == "smtp" && c.Mail.Host == "" {
		return fmt.Errorf("MAIL_HOST is required for the smtp mail driver")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
