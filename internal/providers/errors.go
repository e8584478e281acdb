package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"review_gateway/internal/utils"
)

// ErrorKind is the structured category of a failed provider call.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindTimeout
	ErrorKindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindRateLimited:
		return "rate_limited"
	}
	return "unknown"
}

// ProviderError wraps a failed call for one file. The underlying SDK error
// stays in the chain.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	File     string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s review of %q failed (%s): %v", e.Provider, e.File, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf returns the structured kind of err, classifying errors that did not
// come through a client by their message.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classify(err, 0)
}

// statusFunc extracts an HTTP status from an SDK-specific error type.
type statusFunc func(error) (int, bool)

func newProviderError(provider, file string, err error, status statusFunc) *ProviderError {
	code := 0
	if status != nil {
		if c, ok := status(err); ok {
			code = c
		}
	}
	return &ProviderError{
		Kind:     classify(err, code),
		Provider: provider,
		File:     file,
		Status:   code,
		Err:      redactURL(err),
	}
}

// redactedError replaces the text of a transport error whose request URL
// carried a query string. Some SDKs send the API key as a query parameter.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	safe := stripQuery(ue.URL)
	if safe == ue.URL {
		return err
	}

	msg := fmt.Sprintf("%s %q: %v", ue.Op, safe, ue.Err)
	if err != error(ue) {
		// Keep the wrapping context when the URL can be replaced verbatim.
		leak := ue.URL
		if i := strings.IndexAny(ue.URL, "?#"); i >= 0 {
			leak = ue.URL[i:]
		}
		if wrapped := strings.ReplaceAll(err.Error(), ue.URL, safe); !strings.Contains(wrapped, leak) {
			msg = wrapped
		}
	}
	return &redactedError{msg: msg, err: ue.Err}
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

func classify(err error, status int) ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return ErrorKindRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorKindTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	// Transport failures (*url.Error included) are either timeouts or
	// unknown. Their text holds the request URL.
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorKindTimeout
		}
		return ErrorKindUnknown
	}

	if status == 0 {
		switch utils.ClassifyMessage(err) {
		case utils.MessageTimeout:
			return ErrorKindTimeout
		case utils.MessageRateLimited:
			return ErrorKindRateLimited
		}
	}
	return ErrorKindUnknown
}
