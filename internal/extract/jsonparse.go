package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseFailure explains why model output could not be used
type ParseFailure struct {
	Reason string
	Raw    string
}

func (f *ParseFailure) Error() string {
	return "parse failure: " + f.Reason
}

// Parsed carries either a decoded value or the reason decoding failed.
// Callers must check Failure before using Value.
type Parsed[T any] struct {
	Value   T
	Failure *ParseFailure
}

// OK reports whether a value was decoded
func (p Parsed[T]) OK() bool {
	return p.Failure == nil
}

func failed[T any](raw, format string, args ...any) Parsed[T] {
	return Parsed[T]{Failure: &ParseFailure{Reason: fmt.Sprintf(format, args...), Raw: raw}}
}

// ParseArray decodes the first well-formed JSON array embedded in text that fits []T
func ParseArray[T any](text string) Parsed[[]T] {
	return parseEmbedded[[]T](text, '[')
}

// ParseObject decodes the first well-formed JSON object embedded in text that fits T
func ParseObject[T any](text string) Parsed[T] {
	return parseEmbedded[T](text, '{')
}

// parseEmbedded tries every occurrence of open as the start of a JSON value.
// Model replies often wrap JSON in prose or code fences, and may mention
// brackets before the payload.
func parseEmbedded[T any](text string, open byte) Parsed[T] {
	if strings.TrimSpace(text) == "" {
		return failed[T](text, "empty response")
	}

	reason := fmt.Sprintf("no JSON %s found", shapeName(open))
	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			reason = fmt.Sprintf("malformed JSON %s: %v", shapeName(open), err)
			continue
		}

		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			reason = fmt.Sprintf("unexpected JSON shape: %v", err)
			continue
		}
		return Parsed[T]{Value: v}
	}

	return failed[T](text, "%s", reason)
}

func shapeName(open byte) string {
	if open == '[' {
		return "array"
	}
	return "object"
}
