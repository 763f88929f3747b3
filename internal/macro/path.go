package macro

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is a single traversal step of a path expression: either a field
// access on a mapping or an index access on a sequence.
type Step struct {
	Field   string
	Index   int
	IsIndex bool
}

// ParsePath parses a dotted/bracketed path expression like "a.b[0].c" into
// an ordered list of steps. An empty path is valid and denotes the document
// itself (no steps).
func ParsePath(path string) ([]Step, error) {
	if path == "" {
		return nil, nil
	}

	var steps []Step
	i := 0
	expectField := true

	for i < len(path) {
		switch path[i] {
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated index in path %q", path)
			}
			lit := path[i+1 : i+end]
			idx, err := strconv.Atoi(lit)
			if err != nil {
				return nil, fmt.Errorf("invalid index %q in path %q", lit, path)
			}
			steps = append(steps, Step{Index: idx, IsIndex: true})
			i += end + 1
			expectField = false

		case '.':
			if expectField || i+1 >= len(path) {
				return nil, fmt.Errorf("empty segment in path %q", path)
			}
			i++
			expectField = true

		default:
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			if !expectField {
				return nil, fmt.Errorf("unexpected segment %q in path %q", path[i:j], path)
			}
			steps = append(steps, Step{Field: path[i:j]})
			i = j
			expectField = false
		}
	}

	return steps, nil
}

// EvaluateSteps walks the document applying each step in order. It returns
// the referenced value and true, or (nil, false) when any step misses: a
// field absent from a mapping, an index out of range, a negative index, or
// a step applied to a value of the wrong type. The document is never mutated.
func EvaluateSteps(steps []Step, document interface{}) (interface{}, bool) {
	current := document
	for _, s := range steps {
		if s.IsIndex {
			seq, ok := current.([]interface{})
			if !ok || s.Index < 0 || s.Index >= len(seq) {
				return nil, false
			}
			current = seq[s.Index]
			continue
		}
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := obj[s.Field]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// EvaluatePath parses and evaluates a path expression against a document.
// A path that does not parse is reported as not found; callers that need to
// distinguish a malformed expression should use ParsePath directly.
func EvaluatePath(path string, document interface{}) (interface{}, bool) {
	steps, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	return EvaluateSteps(steps, document)
}
