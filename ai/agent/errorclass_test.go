package agent

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linhvu2695/aiven/ai/llm"
)

func TestClassifyImageFormatWithSubtypes(t *testing.T) {
	classified := Classify(errors.New("Unsupported media type. Supported: 'image/jpeg', 'image/png'"))
	require.Equal(t, KindFormatUnsupported, classified.Kind)
	require.Contains(t, classified.UserMessage, "JPEG")
	require.Contains(t, classified.UserMessage, "PNG")
}

func TestClassifyImageSubtypesDeduplicated(t *testing.T) {
	classified := Classify(errors.New("image/webp rejected, try image/png or image/webp"))
	require.Equal(t, KindFormatUnsupported, classified.Kind)
	require.Contains(t, classified.UserMessage, "WEBP, PNG")
}

func TestClassifyFormatTokenWithoutMime(t *testing.T) {
	for _, detail := range []string{
		"invalid media_type for request",
		"unsupported file format",
		"Invalid FORMAT provided",
	} {
		classified := Classify(errors.New(detail))
		require.Equal(t, KindFormatUnsupported, classified.Kind, "detail %q", detail)
		require.NotContains(t, classified.UserMessage, "Supported formats")
	}
}

func TestClassifyBadRequest(t *testing.T) {
	classified := Classify(errors.New("provider returned status 400"))
	require.Equal(t, KindBadRequest, classified.Kind)

	classified = Classify(&llm.ProviderError{APIType: "BadRequestError", Detail: "no tokens"})
	require.Equal(t, KindBadRequest, classified.Kind)

	classified = Classify(&llm.ProviderError{StatusCode: 400, Detail: "refused"})
	require.Equal(t, KindBadRequest, classified.Kind)
}

func TestClassifyFormatWinsOverBadRequest(t *testing.T) {
	classified := Classify(&llm.ProviderError{
		StatusCode: 400,
		APIType:    "BadRequestError",
		Detail:     "unsupported image/gif input",
	})
	require.Equal(t, KindFormatUnsupported, classified.Kind)
	require.Contains(t, classified.UserMessage, "GIF")
}

func TestClassifyGeneric(t *testing.T) {
	classified := Classify(errors.New("plain failure"))
	require.Equal(t, KindGeneric, classified.Kind)
	require.NotEmpty(t, classified.UserMessage)

	classified = Classify(errors.New(""))
	require.Equal(t, KindGeneric, classified.Kind)

	classified = Classify(nil)
	require.Equal(t, KindGeneric, classified.Kind)
}

func TestClassifyUsesProviderErrorDetail(t *testing.T) {
	// The wrapping text mentions "format", but classification must read the
	// typed detail only once a ProviderError is present in the chain.
	inner := &llm.ProviderError{Provider: "openai", Model: "gpt-4o", StatusCode: 500, Detail: "server blew up"}
	classified := Classify(fmt.Errorf("request format handler: %w", inner))
	require.Equal(t, KindGeneric, classified.Kind)
}
