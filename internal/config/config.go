package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, the controller adapter, the HTTP
// server, token verification and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the environment's default log level when set
	LogLevel string `env:"LOG_LEVEL" yaml:"logLevel"`

	// APIVersion is reported as api_version in every response envelope
	APIVersion string `env:"API_VERSION" env-default:"service-f0.0.0" yaml:"apiVersion"`

	// Adapter contains the request normalization settings of the controller adapter
	Adapter struct {
		// FilesInBody keeps multipart uploads inside the request body instead of a separate field
		FilesInBody bool `env:"ADAPTER_FILES_IN_BODY" env-default:"false" yaml:"filesInBody"`
		// MaxBodyBytes bounds the size of a decoded request body
		MaxBodyBytes int64 `env:"ADAPTER_MAX_BODY_BYTES" env-default:"1048576" yaml:"maxBodyBytes"`
		// MaxMultipartMemory is the part of a multipart body kept in memory, the rest spills to disk
		MaxMultipartMemory int64 `env:"ADAPTER_MAX_MULTIPART_MEMORY" env-default:"33554432" yaml:"maxMultipartMemory"`
		// Languages are the envelope languages negotiated from Accept-Language, the first is the default
		Languages []string `env:"ADAPTER_LANGUAGES" env-default:"en" yaml:"languages"`
	} `yaml:"adapter"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// RateLimit is the number of requests per second admitted, 0 disables limiting
		RateLimit float64 `env:"HTTP_RATE_LIMIT" env-default:"0" yaml:"rateLimit"`
		// RateLimitBurst is the number of requests admitted at once above RateLimit
		RateLimitBurst int `env:"HTTP_RATE_LIMIT_BURST" env-default:"20" yaml:"rateLimitBurst"`
		// CORSOrigin is the allowed CORS origin, empty allows any origin
		CORSOrigin string `env:"HTTP_CORS_ORIGIN" yaml:"corsOrigin"`
		// Pprof mounts the net/http/pprof handlers under /debug/pprof/
		Pprof bool `env:"HTTP_PPROF" env-default:"false" yaml:"pprof"`
	} `yaml:"http"`

	// JWT contains the keys used to verify and issue bearer tokens
	JWT struct {
		// PublicKey is the PEM encoded RSA key verifying tokens, empty disables authentication
		PublicKey string `env:"JWT_PUBLIC_KEY" yaml:"publicKey"`
		// PrivateKey is the PEM encoded RSA key used by the jwt command to sign tokens
		PrivateKey string `env:"JWT_PRIVATE_KEY" yaml:"privateKey"`
	} `yaml:"jwt"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// A missing file is not an error: values then come from the environment and defaults.
func Load(configPath string) (*Config, error) {
	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("could not read environment: %w", err)
		}

		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
