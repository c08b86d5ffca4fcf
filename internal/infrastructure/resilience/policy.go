package resilience

import "time"

type Config struct {
	// Retries is the number of extra attempts after the first one.
	Retries                int
	BackoffFactor          time.Duration
	MaxBackoff             time.Duration
	RateLimitBackoffFactor time.Duration
	RateLimitMaxBackoff    time.Duration

	// RequestsPerMinute paces attempts client-side. Zero disables pacing.
	RequestsPerMinute float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		Retries:                2,
		BackoffFactor:          1 * time.Second,
		MaxBackoff:             60 * time.Second,
		RateLimitBackoffFactor: 10 * time.Second,
		RateLimitMaxBackoff:    120 * time.Second,

		BreakerEnabled:          false,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.8,
		BreakerOpenTimeout:      60 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.Retries < 0 {
		out.Retries = 0
	}
	if out.BackoffFactor < 0 {
		out.BackoffFactor = 0
	}
	if out.MaxBackoff < out.BackoffFactor {
		out.MaxBackoff = out.BackoffFactor
	}
	if out.RateLimitBackoffFactor < 0 {
		out.RateLimitBackoffFactor = 0
	}
	if out.RateLimitMaxBackoff < out.RateLimitBackoffFactor {
		out.RateLimitMaxBackoff = out.RateLimitBackoffFactor
	}
	if out.RequestsPerMinute < 0 {
		out.RequestsPerMinute = 0
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
