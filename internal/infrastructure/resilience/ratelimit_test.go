package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassifyRateLimit(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name          string
		err           error
		limited       bool
		hasRetryAfter bool
		retryAfter    time.Duration
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("connection reset")},
		{name: "status 429", err: &fakeProviderError{status: http.StatusTooManyRequests}, limited: true},
		{name: "status 500", err: &fakeProviderError{status: http.StatusInternalServerError}},
		{name: "text 429", err: errors.New("HTTP 429 Too Many Requests"), limited: true},
		{name: "resource exhausted", err: errors.New("rpc error: RESOURCE_EXHAUSTED"), limited: true},
		{name: "quota any case", err: errors.New("Quota exceeded for project"), limited: true},
		{
			name:          "wrapped with retry-after",
			err:           fmt.Errorf("complete: %w", &fakeProviderError{status: 429, header: http.Header{"Retry-After": []string{"12"}}}),
			limited:       true,
			hasRetryAfter: true,
			retryAfter:    12 * time.Second,
		},
		{
			name:          "http date",
			err:           &fakeProviderError{status: 429, header: http.Header{"Retry-After": []string{now.Add(90 * time.Second).Format(http.TimeFormat)}}},
			limited:       true,
			hasRetryAfter: true,
			retryAfter:    90 * time.Second,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := ClassifyRateLimit(tc.err, now)
			if info.Limited != tc.limited {
				t.Fatalf("limited: expected %v, got %v", tc.limited, info.Limited)
			}
			if info.HasRetryAfter != tc.hasRetryAfter {
				t.Fatalf("has retry-after: expected %v, got %v", tc.hasRetryAfter, info.HasRetryAfter)
			}
			if info.RetryAfter != tc.retryAfter {
				t.Fatalf("retry-after: expected %v, got %v", tc.retryAfter, info.RetryAfter)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if d, ok := ParseRetryAfter("1.5", now); !ok || d != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v %v", d, ok)
	}
	if d, ok := ParseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now); !ok || d != 0 {
		t.Fatalf("expected past date to clamp to zero, got %v %v", d, ok)
	}
	if _, ok := ParseRetryAfter("soon", now); ok {
		t.Fatalf("expected unparseable value to be rejected")
	}
	if _, ok := ParseRetryAfter("NaN", now); ok {
		t.Fatalf("expected NaN to be rejected")
	}
	if _, ok := ParseRetryAfter("", now); ok {
		t.Fatalf("expected empty value to be rejected")
	}
}
