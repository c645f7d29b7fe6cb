package agent

import (
	"errors"
	"regexp"
	"strings"

	"github.com/linhvu2695/aiven/ai/llm"
)

// ErrorKind is the category of a classified provider failure.
type ErrorKind string

const (
	KindFormatUnsupported ErrorKind = "format_unsupported"
	KindBadRequest        ErrorKind = "bad_request"
	KindGeneric           ErrorKind = "generic"
)

// Classified is the user-safe rendition of a provider failure. It is never
// persisted; it exists only while a failing turn is being answered.
type Classified struct {
	Kind        ErrorKind
	UserMessage string
}

const (
	genericFormatMessage = "Sorry, that file format is not supported. Please try a different format."
	badRequestMessage    = "Sorry, I couldn't process that request. Please check your input and try again."
	genericMessage       = "Sorry, something went wrong while generating a response. Please try again."
)

var imageMimePattern = regexp.MustCompile(`(?i)\bimage/([a-z0-9.+-]+)`)

// Classify maps a provider failure to a user-safe message. It is total: any
// error, including one with an empty message, maps to exactly one kind, and
// the function never fails. Typed fields from the provider boundary are
// preferred; raw string matching is the fallback for errors that carry
// nothing else.
func Classify(err error) Classified {
	var detail, typeName string
	if err != nil {
		detail = err.Error()
	}

	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		detail = pe.Detail
		typeName = pe.APIType
	}

	lower := strings.ToLower(detail)

	subtypes := extractImageSubtypes(detail)
	if len(subtypes) > 0 || strings.Contains(lower, "media_type") || strings.Contains(lower, "format") {
		message := genericFormatMessage
		if len(subtypes) > 0 {
			message = "Sorry, that image format is not supported. Supported formats: " + strings.Join(subtypes, ", ") + "."
		}
		return Classified{Kind: KindFormatUnsupported, UserMessage: message}
	}

	if strings.Contains(typeName, "BadRequestError") || strings.Contains(detail, "400") {
		return Classified{Kind: KindBadRequest, UserMessage: badRequestMessage}
	}
	if pe != nil && pe.StatusCode == 400 {
		return Classified{Kind: KindBadRequest, UserMessage: badRequestMessage}
	}

	return Classified{Kind: KindGeneric, UserMessage: genericMessage}
}

// extractImageSubtypes pulls the subtype of every image/<subtype> substring,
// uppercased, deduplicated, in order of appearance.
func extractImageSubtypes(detail string) []string {
	matches := imageMimePattern.FindAllStringSubmatch(detail, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	subtypes := make([]string, 0, len(matches))
	for _, m := range matches {
		subtype := strings.ToUpper(m[1])
		if _, ok := seen[subtype]; ok {
			continue
		}
		seen[subtype] = struct{}{}
		subtypes = append(subtypes, subtype)
	}
	return subtypes
}
