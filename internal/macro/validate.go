package macro

import (
	"fmt"
	"sort"
)

// ValidateConfig statically checks a candidate macro configuration against
// the registry before anything is resolved. The top-level document maps
// field names to invocations; each invocation must carry a registered macro
// kind and every required kwarg, with kwarg values matching their declared
// shapes. Validation is fail-fast: the first violation is returned, the
// document is never mutated, and on success the same document comes back.
func (r *Registry) ValidateConfig(cfg map[string]interface{}) (map[string]interface{}, error) {
	if cfg == nil {
		return nil, &ValidationError{Code: CodeMalformedShape, Message: "configuration must be a mapping"}
	}

	// Deterministic traversal so the same document always yields the same
	// first error.
	fields := make([]string, 0, len(cfg))
	for field := range cfg {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if verr := r.validateInvocation(field, cfg[field]); verr != nil {
			return nil, verr
		}
	}
	return cfg, nil
}

// ValidateInvocation checks a single macro invocation, including any nested
// invocations reachable through macro-list kwargs.
func (r *Registry) ValidateInvocation(inv map[string]interface{}) error {
	if verr := r.validateInvocation("", inv); verr != nil {
		return verr
	}
	return nil
}

func (r *Registry) validateInvocation(loc string, raw interface{}) *ValidationError {
	inv, ok := raw.(map[string]interface{})
	if !ok {
		return &ValidationError{Code: CodeMalformedShape, Field: loc, Message: "macro invocation must be a mapping"}
	}

	rawKind, ok := inv["macro"]
	if !ok {
		return &ValidationError{Code: CodeMissingField, Field: loc, Message: `missing required key "macro"`}
	}
	kind, ok := rawKind.(string)
	if !ok {
		return &ValidationError{Code: CodeMalformedShape, Field: loc, Message: `"macro" must be a string`}
	}

	rawKwargs, ok := inv["kwargs"]
	if !ok {
		return &ValidationError{Code: CodeMissingField, Field: loc, Message: `missing required key "kwargs"`}
	}
	kwargs, ok := rawKwargs.(map[string]interface{})
	if !ok {
		return &ValidationError{Code: CodeMalformedShape, Field: loc, Message: `"kwargs" must be a mapping`}
	}

	def, ok := r.Lookup(kind)
	if !ok {
		return &ValidationError{Code: CodeUnknownMacro, Field: loc, Message: fmt.Sprintf("unknown macro kind %q", kind)}
	}

	for _, p := range def.Params {
		value, present := kwargs[p.Name]
		if !present {
			if p.Required {
				return &ValidationError{Code: CodeMissingKwarg, Field: loc, Message: fmt.Sprintf("macro %q requires kwarg %q", kind, p.Name)}
			}
			continue
		}
		if verr := r.checkShape(loc, kind, p, value); verr != nil {
			return verr
		}
	}
	return nil
}

func (r *Registry) checkShape(loc, kind string, p Param, value interface{}) *ValidationError {
	malformed := func(format string, args ...interface{}) *ValidationError {
		return &ValidationError{Code: CodeMalformedShape, Field: loc, Message: fmt.Sprintf(format, args...)}
	}

	switch p.Shape {
	case ShapePath:
		s, ok := value.(string)
		if !ok {
			return malformed("kwarg %q of %q must be a path expression string", p.Name, kind)
		}
		if _, err := ParsePath(s); err != nil {
			return malformed("kwarg %q of %q: %v", p.Name, kind, err)
		}

	case ShapeTemplate:
		s, ok := value.(string)
		if !ok {
			return malformed("kwarg %q of %q must be a template string", p.Name, kind)
		}
		if _, err := ParseTemplate(s); err != nil {
			return malformed("kwarg %q of %q: %v", p.Name, kind, err)
		}

	case ShapeMacroList:
		list, ok := value.([]interface{})
		if !ok {
			return malformed("kwarg %q of %q must be a list of macro invocations", p.Name, kind)
		}
		if len(list) == 0 {
			return malformed("kwarg %q of %q must contain at least one macro invocation", p.Name, kind)
		}
		for i, item := range list {
			inner := fmt.Sprintf("%s[%d]", p.Name, i)
			if loc != "" {
				inner = fmt.Sprintf("%s.%s", loc, inner)
			}
			if verr := r.validateInvocation(inner, item); verr != nil {
				return verr
			}
		}

	case ShapeScalar:
		switch value.(type) {
		case string, bool, float64, int, int64, nil:
		default:
			return malformed("kwarg %q of %q must be a scalar", p.Name, kind)
		}
	}
	return nil
}
