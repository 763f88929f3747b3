package macro

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Segment is a parsed piece of a template string: either literal text or a
// {{ path }} placeholder.
type Segment struct {
	Literal string
	Expr    string
	IsExpr  bool

	steps []Step
}

// ParseTemplate splits a template into literal and placeholder segments.
// Placeholders use {{ path.expression }} syntax; the inner expression must
// parse as a path expression.
func ParseTemplate(tpl string) ([]Segment, error) {
	var segs []Segment
	for len(tpl) > 0 {
		open := strings.Index(tpl, "{{")
		if open < 0 {
			segs = append(segs, Segment{Literal: tpl})
			break
		}
		if open > 0 {
			segs = append(segs, Segment{Literal: tpl[:open]})
		}
		end := strings.Index(tpl[open:], "}}")
		if end < 0 {
			return nil, fmt.Errorf("unterminated placeholder in template %q", tpl)
		}
		expr := strings.TrimSpace(tpl[open+2 : open+end])
		steps, err := ParsePath(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid placeholder %q: %v", expr, err)
		}
		segs = append(segs, Segment{Expr: expr, IsExpr: true, steps: steps})
		tpl = tpl[open+end+2:]
	}
	return segs, nil
}

// RenderTemplate substitutes every placeholder with the value it resolves to
// against the document. Missing or null values render as the empty string so
// partial sample data never aborts a render; the only error case is a
// template that does not parse.
func RenderTemplate(tpl string, document interface{}) (string, error) {
	segs, err := ParseTemplate(tpl)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, seg := range segs {
		if !seg.IsExpr {
			b.WriteString(seg.Literal)
			continue
		}
		v, found := EvaluateSteps(seg.steps, document)
		if !found {
			continue
		}
		b.WriteString(Stringify(v))
	}
	return b.String(), nil
}

// Stringify converts a resolved value to its canonical string form: numbers
// in minimal decimal notation, booleans as true/false, nil as the empty
// string. Composite values are JSON-encoded.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
