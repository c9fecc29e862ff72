package configuration

import (
	"time"
)

// Provider constants.
const (
	DefaultEndpoint        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel           = "gemini-2.0-flash-exp"
	DefaultProviderTimeout = 60 * time.Second
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 2048
)

// Rate limiting constants.
const (
	// DefaultRequestsPerMinute stays just under the 10/min free-tier quota.
	DefaultRequestsPerMinute = 9
	DefaultGlobalKey         = "coach:ratelimit:slot"
	DefaultConnectTimeout    = 5 * time.Second
)

// Observability and worker constants.
const (
	DefaultMetricsAddr = ":9090"
	DefaultTaskQueue   = "coach-evaluation"
	DefaultNamespace   = "default"
	DefaultHostPort    = "localhost:7233"
)

// DefaultConfig returns configuration with sensible defaults. The API key is
// resolved from GOOGLE_GENERATIVE_AI_API_KEY at call time.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Endpoint:    DefaultEndpoint,
			Model:       DefaultModel,
			APIKeyEnv:   APIKeyEnv,
			Timeout:     DefaultProviderTimeout,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: DefaultRequestsPerMinute,
			Global: GlobalRateLimitConfig{
				Enabled:        false,
				Key:            DefaultGlobalKey,
				ConnectTimeout: DefaultConnectTimeout,
			},
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: false,
			MetricsAddr:    DefaultMetricsAddr,
			LogLevel:       "info",
			LogFormat:      "text",
		},
		Temporal: TemporalConfig{
			HostPort:  DefaultHostPort,
			Namespace: DefaultNamespace,
			TaskQueue: DefaultTaskQueue,
		},
	}
}
