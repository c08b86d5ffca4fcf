package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/resilience"
)

type scriptedModel struct {
	errs  []error
	text  string
	calls int
}

func (m *scriptedModel) Complete(context.Context, string) (string, error) {
	m.calls++
	if m.calls <= len(m.errs) {
		return "", m.errs[m.calls-1]
	}
	return m.text, nil
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestInvokerRetriesUntilSuccess(t *testing.T) {
	model := &scriptedModel{errs: []error{errors.New("timeout")}, text: "Documents"}
	executor := resilience.NewExecutor(resilience.Config{Retries: 2}, resilience.WithSleep(noSleep))
	invoker := NewInvoker("fake", model, executor, nil)

	text, err := invoker.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Documents", text)
	assert.Equal(t, 2, model.calls)
}

func TestInvokerWaitsForRetryAfterOnProviderError(t *testing.T) {
	var waits []time.Duration
	providerErr := &ProviderError{
		Provider:   "fake",
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"7"}},
		Err:        errors.New("slow down"),
	}
	model := &scriptedModel{errs: []error{providerErr}, text: "Images"}
	executor := resilience.NewExecutor(resilience.Config{Retries: 1},
		resilience.WithJitter(func() float64 { return 0 }),
		resilience.WithSleep(func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}))

	text, err := NewInvoker("fake", model, executor, nil).Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Images", text)
	assert.Equal(t, []time.Duration{7 * time.Second}, waits)
}

func TestInvokerExhaustionReturnsInvocationError(t *testing.T) {
	cause := errors.New("bad gateway")
	model := &scriptedModel{errs: []error{cause, cause, cause}}
	executor := resilience.NewExecutor(resilience.Config{Retries: 2}, resilience.WithSleep(noSleep))

	_, err := NewInvoker("fake", model, executor, nil).Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMInvocation)
	assert.ErrorIs(t, err, cause)

	var invErr *domain.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, 3, invErr.Attempts)
	assert.Equal(t, 3, model.calls)
}

func TestHeaderCaptureTransportRecordsResponseHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, headers := WithHeaderCapture(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := NewHTTPClient(time.Second).Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "3", headers().Get("Retry-After"))
}

func TestProviderErrorExposesStatusAndHeaders(t *testing.T) {
	err := error(&ProviderError{Provider: "openai", StatusCode: 429, Header: http.Header{"Retry-After": []string{"1"}}, Err: errors.New("limited")})

	info := resilience.ClassifyRateLimit(err, time.Now())
	assert.True(t, info.Limited)
	assert.True(t, info.HasRetryAfter)
	assert.Equal(t, time.Second, info.RetryAfter)
	assert.Contains(t, err.Error(), "status 429")
}
