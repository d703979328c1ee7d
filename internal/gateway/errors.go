package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Failure classes. Errors returned by a Gateway wrap exactly one of these
// when the failure could be classified; use errors.Is to test.
var (
	ErrAuthentication     = errors.New("authentication failed")
	ErrRateLimit          = errors.New("rate limited")
	ErrTransient          = errors.New("transient upstream failure")
	ErrUnsupportedModel   = errors.New("unsupported model")
	ErrInvalidTemperature = errors.New("temperature must be within [0, 1]")
)

// UnsupportedModelError reports a model the provider does not recognize.
type UnsupportedModelError struct {
	Provider string
	Model    string
}

func (e *UnsupportedModelError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: no model configured", e.Provider)
	}
	return fmt.Sprintf("%s: unsupported model %q", e.Provider, e.Model)
}

// Is lets errors.Is(err, ErrUnsupportedModel) match.
func (e *UnsupportedModelError) Is(target error) bool {
	return target == ErrUnsupportedModel
}

// classifyStatus maps an HTTP status code to a failure class, or nil when
// the status carries no class (e.g., a plain 400).
func classifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthentication
	case code == http.StatusTooManyRequests:
		return ErrRateLimit
	case code == http.StatusNotFound:
		return ErrUnsupportedModel
	case code == http.StatusRequestTimeout || code == http.StatusConflict || code >= 500:
		return ErrTransient
	}
	return nil
}

// statusCode extracts the HTTP status from any of the SDK error types.
func statusCode(err error) (int, bool) {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode, true
	}
	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode, true
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) {
		return gErrPtr.Code, true
	}
	return 0, false
}

// classify wraps an SDK error with its failure class. Context cancellation is
// passed through unchanged so callers can tell it apart from upstream faults.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if code, ok := statusCode(err); ok {
		if class := classifyStatus(code); class != nil {
			return fmt.Errorf("%s API call failed: %w: %w", provider, class, err)
		}
		return fmt.Errorf("%s API call failed: %w", provider, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%s API call failed: %w: %w", provider, ErrTransient, err)
	}
	return fmt.Errorf("%s API call failed: %w", provider, err)
}

// resultLabel names the failure class for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuthentication):
		return "auth"
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrUnsupportedModel):
		return "unsupported_model"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
