package lang

import (
	"context"
	"fmt"
	"time"
)

// Provider is the seam to the external translation and text-to-speech
// services.  Both calls are fallible and may be retried by the decorator;
// the diagnosis engine itself never invokes a Provider.
type Provider interface {
	// Translate renders text into the BCP-47 target language.  Passing the
	// text's own language is allowed and should return it unchanged.
	Translate(ctx context.Context, text, targetLang string) (string, error)
	// Synthesize returns spoken audio for text in the given language.
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Config selects and configures the backing service.
type Config struct {
	Provider string // "gemini", "openai" or "mock"
	APIKey   string
	Retry    RetryConfig
}

// RetryConfig controls the retry decorator.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig keeps waits short: these calls sit on an interactive
// request path.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 300 * time.Millisecond,
		MaxWait:     3 * time.Second,
		Multiplier:  2,
	}
}

// New creates a Provider from configuration, wrapped with retry.
func New(ctx context.Context, cfg Config) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.APIKey)
	case "openai":
		base, err = NewOpenAIProvider(cfg.APIKey)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown language provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return WithRetry(base, cfg.Retry), nil
}
