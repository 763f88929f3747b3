package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GenerationError reports a backend response that could not be parsed as a
// JSON macro configuration, with enough context to debug the blob.
type GenerationError struct {
	Offset  int64  // byte offset of the parse failure in the cleaned text
	Context string // short window of text around the failure
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("invalid_json: %v (offset %d, near %q)", e.Err, e.Offset, e.Context)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// SanitizeResponse strips markdown code fences and any surrounding prose
// from a backend text blob, leaving the JSON object the model was asked for.
func SanitizeResponse(text string) string {
	out := strings.TrimSpace(text)

	if strings.HasPrefix(out, "```json") {
		out = out[len("```json"):]
	}
	if strings.HasPrefix(out, "```") {
		out = out[3:]
	}
	if strings.HasSuffix(out, "```") {
		out = out[:len(out)-3]
	}
	out = strings.TrimSpace(out)

	// Models sometimes wrap the object in prose despite instructions. Keep
	// only the outermost braces when both are present.
	if !strings.HasPrefix(out, "{") {
		first := strings.Index(out, "{")
		last := strings.LastIndex(out, "}")
		if first >= 0 && last > first {
			out = out[first : last+1]
		}
	}
	return strings.TrimSpace(out)
}

// ParseConfig sanitizes and parses a backend text blob into a raw macro
// configuration document. Parse failures surface as a GenerationError with
// the byte offset and a context window around the failure.
func ParseConfig(text string) (map[string]interface{}, error) {
	cleaned := SanitizeResponse(text)

	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &cfg); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return nil, &GenerationError{
				Offset:  syn.Offset,
				Context: contextWindow(cleaned, syn.Offset),
				Err:     err,
			}
		}
		return nil, &GenerationError{Context: contextWindow(cleaned, 0), Err: err}
	}
	return cfg, nil
}

// contextWindow returns up to 50 bytes either side of the offset.
func contextWindow(text string, offset int64) string {
	start := offset - 50
	if start < 0 {
		start = 0
	}
	end := offset + 50
	if end > int64(len(text)) {
		end = int64(len(text))
	}
	return text[start:end]
}
