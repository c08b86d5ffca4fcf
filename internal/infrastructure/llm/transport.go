package llm

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type headerSinkKey struct{}

type headerSink struct {
	mu     sync.Mutex
	header http.Header
}

// WithHeaderCapture returns a context that records the headers of the last
// response sent through a HeaderCaptureTransport for requests made with it.
func WithHeaderCapture(ctx context.Context) (context.Context, func() http.Header) {
	sink := &headerSink{}
	ctx = context.WithValue(ctx, headerSinkKey{}, sink)
	return ctx, func() http.Header {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.header
	}
}

// HeaderCaptureTransport copies response headers into the sink attached to
// the request context. SDKs that drop headers from their error types still
// build requests from the caller's context, so Retry-After survives.
type HeaderCaptureTransport struct {
	Base http.RoundTripper
}

func (t *HeaderCaptureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if resp != nil {
		if sink, ok := req.Context().Value(headerSinkKey{}).(*headerSink); ok {
			sink.mu.Lock()
			sink.header = resp.Header.Clone()
			sink.mu.Unlock()
		}
	}
	return resp, err
}

// NewHTTPClient is the client handed to every provider SDK.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &HeaderCaptureTransport{},
	}
}
