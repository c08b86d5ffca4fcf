package resilience

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusCoder is implemented by provider errors that know the HTTP status of
// the failed response.
type StatusCoder interface {
	HTTPStatusCode() int
}

// HeaderCarrier is implemented by provider errors that kept the response headers.
type HeaderCarrier interface {
	ResponseHeader() http.Header
}

type RateLimitInfo struct {
	Limited       bool
	RetryAfter    time.Duration
	HasRetryAfter bool
}

// ClassifyRateLimit decides whether err signals provider throttling and
// extracts the server's Retry-After hint when one is attached.
//
// Throttling is an HTTP 429 status, or the error text containing "429",
// "RESOURCE_EXHAUSTED" or "quota" (any case). Retry-After is read from the
// headers regardless of status so a text-detected 429 can still honor it.
func ClassifyRateLimit(err error, now time.Time) RateLimitInfo {
	var info RateLimitInfo
	if err == nil {
		return info
	}

	var coder StatusCoder
	if errors.As(err, &coder) && coder.HTTPStatusCode() == http.StatusTooManyRequests {
		info.Limited = true
	}

	var carrier HeaderCarrier
	if errors.As(err, &carrier) {
		if header := carrier.ResponseHeader(); header != nil {
			info.RetryAfter, info.HasRetryAfter = ParseRetryAfter(header.Get("Retry-After"), now)
		}
	}

	if !info.Limited {
		text := err.Error()
		if strings.Contains(text, "429") ||
			strings.Contains(text, "RESOURCE_EXHAUSTED") ||
			strings.Contains(strings.ToLower(text), "quota") {
			info.Limited = true
		}
	}
	return info
}

// ParseRetryAfter accepts delay-seconds or an HTTP date. Dates in the past
// yield a zero delay.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(seconds) && !math.IsInf(seconds, 0) {
		if seconds < 0 {
			return 0, true
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	wait := at.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}
