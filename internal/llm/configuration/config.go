// Package configuration holds the runtime settings for the coach pipeline:
// inference provider access, call pacing, telemetry, and the evaluation worker.
package configuration

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidConfig indicates the loaded configuration failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix is the prefix for environment overrides, e.g. COACH_PROVIDER_MODEL.
const EnvPrefix = "COACH"

// APIKeyEnv is the conventional variable holding the Gemini API key.
const APIKeyEnv = "GOOGLE_GENERATIVE_AI_API_KEY"

// Config holds comprehensive configuration for the coach pipeline.
type Config struct {
	// Provider configuration for the inference service.
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`

	// Observability configuration
	Observability ObservabilityConfig `json:"observability" mapstructure:"observability"`

	// Temporal worker configuration for batch evaluation.
	Temporal TemporalConfig `json:"temporal" mapstructure:"temporal"`

	// Feature flags
	Features FeatureFlags `json:"features" mapstructure:"features"`
}

// ProviderConfig holds provider-specific configuration and authentication.
type ProviderConfig struct {
	Endpoint    string            `json:"endpoint" mapstructure:"endpoint" validate:"omitempty,url"`
	Model       string            `json:"model" mapstructure:"model" validate:"required"`
	APIKey      string            `json:"-" mapstructure:"api_key"` // Sensitive, not serialized
	APIKeyEnv   string            `json:"api_key_env" mapstructure:"api_key_env"`
	Timeout     time.Duration     `json:"timeout" mapstructure:"timeout" validate:"gte=0"` // 0 disables the per-call deadline
	Temperature float64           `json:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int               `json:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	Headers     map[string]string `json:"headers" mapstructure:"headers"`
}

// ResolveAPIKey returns the explicit key or, failing that, the value of the
// configured environment variable.
func (p ProviderConfig) ResolveAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	env := p.APIKeyEnv
	if env == "" {
		env = APIKeyEnv
	}
	return os.Getenv(env)
}

// RateLimitConfig controls the fixed-interval governor that paces every call
// to the inference service.
type RateLimitConfig struct {
	// RequestsPerMinute sets the minimum spacing between calls (60s / rpm).
	RequestsPerMinute float64 `json:"requests_per_minute" mapstructure:"requests_per_minute" validate:"gt=0"`

	// Global Redis-based slot sharing across processes.
	Global GlobalRateLimitConfig `json:"global" mapstructure:"global"`
}

// MinDelay returns the minimum spacing between two calls.
func (c RateLimitConfig) MinDelay() time.Duration {
	if c.RequestsPerMinute <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / c.RequestsPerMinute)
}

// GlobalRateLimitConfig for a Redis-backed slot shared by several processes.
type GlobalRateLimitConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	Key            string        `json:"key" mapstructure:"key"`
	RedisAddr      string        `json:"redis_addr" mapstructure:"redis_addr" validate:"required_if=Enabled true"`
	RedisPassword  string        `json:"-" mapstructure:"redis_password"` // Sensitive
	RedisDB        int           `json:"redis_db" mapstructure:"redis_db" validate:"gte=0"`
	ConnectTimeout time.Duration `json:"connect_timeout" mapstructure:"connect_timeout"`
}

// ObservabilityConfig controls structured logging and Prometheus metrics.
type ObservabilityConfig struct {
	MetricsEnabled bool   `json:"metrics_enabled" mapstructure:"metrics_enabled"`
	MetricsAddr    string `json:"metrics_addr" mapstructure:"metrics_addr"`
	LogLevel       string `json:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string `json:"log_format" mapstructure:"log_format" validate:"oneof=json text"`
}

// TemporalConfig locates the Temporal frontend used by the evaluation worker.
type TemporalConfig struct {
	HostPort  string `json:"host_port" mapstructure:"host_port"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	TaskQueue string `json:"task_queue" mapstructure:"task_queue" validate:"required"`
}

// FeatureFlags control optional behaviors.
type FeatureFlags struct {
	// DisableJSONRepair turns off repair of malformed generator output.
	DisableJSONRepair bool `json:"disable_json_repair" mapstructure:"disable_json_repair"`
	// DisablePlanScoring skips the rubric run after a plan is generated.
	DisablePlanScoring bool `json:"disable_plan_scoring" mapstructure:"disable_plan_scoring"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Load reads configuration from path (if non-empty) layered over
// DefaultConfig, then applies COACH_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every default with viper so env overrides apply to
// keys that never appear in a config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("provider.endpoint", d.Provider.Endpoint)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.api_key_env", d.Provider.APIKeyEnv)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("provider.temperature", d.Provider.Temperature)
	v.SetDefault("provider.max_tokens", d.Provider.MaxTokens)

	v.SetDefault("rate_limit.requests_per_minute", d.RateLimit.RequestsPerMinute)
	v.SetDefault("rate_limit.global.enabled", d.RateLimit.Global.Enabled)
	v.SetDefault("rate_limit.global.key", d.RateLimit.Global.Key)
	v.SetDefault("rate_limit.global.redis_addr", d.RateLimit.Global.RedisAddr)
	v.SetDefault("rate_limit.global.redis_password", "")
	v.SetDefault("rate_limit.global.redis_db", d.RateLimit.Global.RedisDB)
	v.SetDefault("rate_limit.global.connect_timeout", d.RateLimit.Global.ConnectTimeout)

	v.SetDefault("observability.metrics_enabled", d.Observability.MetricsEnabled)
	v.SetDefault("observability.metrics_addr", d.Observability.MetricsAddr)
	v.SetDefault("observability.log_level", d.Observability.LogLevel)
	v.SetDefault("observability.log_format", d.Observability.LogFormat)

	v.SetDefault("temporal.host_port", d.Temporal.HostPort)
	v.SetDefault("temporal.namespace", d.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", d.Temporal.TaskQueue)

	v.SetDefault("features.disable_json_repair", d.Features.DisableJSONRepair)
	v.SetDefault("features.disable_plan_scoring", d.Features.DisablePlanScoring)
}
