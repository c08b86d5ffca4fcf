package llm

import (
	"fmt"
	"net/http"
)

// ProviderError is the common shape of a failed model call. It exposes the
// HTTP status and response headers to the retry classifier without leaking
// SDK types.
type ProviderError struct {
	Provider   string
	StatusCode int
	Header     http.Header
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *ProviderError) ResponseHeader() http.Header {
	return e.Header
}
