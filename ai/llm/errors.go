package llm

import (
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ProviderError is the tagged failure variant returned by the client adapter.
// It is built once at the provider boundary, where the underlying failure
// really is just a string plus (sometimes) an HTTP status; everything above
// this layer works with the typed fields instead of sniffing error text.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int    // HTTP status when known, 0 otherwise
	APIType    string // provider error type name, e.g. BadRequestError
	Detail     string // raw provider message
	cause      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %s", e.Provider, e.Model, e.Detail)
}

func (e *ProviderError) Unwrap() error {
	return e.cause
}

// wrapProviderError converts a raw client failure into a ProviderError,
// extracting status and type information when the underlying error carries it.
func wrapProviderError(provider, model string, err error) *ProviderError {
	pe := &ProviderError{
		Provider: provider,
		Model:    model,
		Detail:   err.Error(),
		cause:    err,
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.HTTPStatusCode
		pe.APIType = apiErr.Type
		if apiErr.Message != "" {
			pe.Detail = apiErr.Message
		}
		if pe.StatusCode == 400 && pe.APIType == "" {
			pe.APIType = "BadRequestError"
		}
		return pe
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe.StatusCode = reqErr.HTTPStatusCode
		if pe.StatusCode == 400 {
			pe.APIType = "BadRequestError"
		}
	}
	return pe
}
