package macro

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Resolve evaluates a single macro invocation against a document and returns
// the produced value. The invocation is expected to have passed validation;
// only structurally broken kwargs surface as errors here, while missing
// sample data degrades to nil (extract) or an empty string (template).
func (r *Registry) Resolve(invocation map[string]interface{}, document interface{}) (interface{}, error) {
	rawKind, ok := invocation["macro"]
	if !ok {
		return nil, &ResolutionError{Message: `invocation has no "macro" key`}
	}
	kind, ok := rawKind.(string)
	if !ok {
		return nil, &ResolutionError{Message: `"macro" is not a string`}
	}

	def, ok := r.Lookup(kind)
	if !ok {
		return nil, &ResolutionError{Kind: kind, Message: "unregistered macro kind"}
	}

	kwargs, _ := invocation["kwargs"].(map[string]interface{})
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}
	return def.Eval(r, kwargs, document)
}

// ResolveAll resolves every field of a validated configuration against the
// same document. Fields are independent of each other; an error on any field
// aborts with that field named.
func (r *Registry) ResolveAll(cfg map[string]interface{}, document interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(cfg))
	for field, raw := range cfg {
		inv, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &ResolutionError{Message: fmt.Sprintf("field %q is not a macro invocation", field)}
		}
		v, err := r.Resolve(inv, document)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		out[field] = v
	}
	return out, nil
}

func stringKwarg(kind string, kwargs map[string]interface{}, name string) (string, error) {
	raw, ok := kwargs[name]
	if !ok {
		return "", &ResolutionError{Kind: kind, Message: fmt.Sprintf("missing kwarg %q", name)}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ResolutionError{Kind: kind, Message: fmt.Sprintf("kwarg %q is not a string", name)}
	}
	return s, nil
}

func evalExtractPath(_ *Registry, kwargs map[string]interface{}, document interface{}) (interface{}, error) {
	path, err := stringKwarg(KindExtractPath, kwargs, "expr")
	if err != nil {
		return nil, err
	}
	steps, perr := ParsePath(path)
	if perr != nil {
		return nil, &ResolutionError{Kind: KindExtractPath, Message: perr.Error()}
	}
	v, found := EvaluateSteps(steps, document)
	if !found {
		return nil, nil
	}
	return v, nil
}

func evalSubstituteTemplate(_ *Registry, kwargs map[string]interface{}, document interface{}) (interface{}, error) {
	tpl, err := stringKwarg(KindSubstituteTemplate, kwargs, "template_string")
	if err != nil {
		return nil, err
	}
	out, rerr := RenderTemplate(tpl, document)
	if rerr != nil {
		return nil, &ResolutionError{Kind: KindSubstituteTemplate, Message: rerr.Error()}
	}
	return out, nil
}

// evalChainedMacro resolves each inner invocation in order against the same
// document. The last result wins; observed configurations carry a single
// meaningful inner macro, typically a substitute_template.
func evalChainedMacro(r *Registry, kwargs map[string]interface{}, document interface{}) (interface{}, error) {
	raw, ok := kwargs["inner_macro_list"]
	if !ok {
		return nil, &ResolutionError{Kind: KindChainedMacro, Message: `missing kwarg "inner_macro_list"`}
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, &ResolutionError{Kind: KindChainedMacro, Message: `"inner_macro_list" is not a list`}
	}
	if len(list) == 0 {
		return nil, &ResolutionError{Kind: KindChainedMacro, Message: `"inner_macro_list" is empty`}
	}

	var result interface{}
	for i, item := range list {
		inner, ok := item.(map[string]interface{})
		if !ok {
			return nil, &ResolutionError{Kind: KindChainedMacro, Message: fmt.Sprintf("inner_macro_list[%d] is not a macro invocation", i)}
		}
		v, err := r.Resolve(inner, document)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

// evalEvaluateExpression runs an expr-lang expression with the document's
// top-level fields in scope and the whole document bound to "document".
func evalEvaluateExpression(_ *Registry, kwargs map[string]interface{}, document interface{}) (interface{}, error) {
	src, err := stringKwarg(KindEvaluateExpression, kwargs, "expression")
	if err != nil {
		return nil, err
	}

	env := map[string]interface{}{"document": document}
	if m, ok := document.(map[string]interface{}); ok {
		for k, v := range m {
			env[k] = v
		}
	}

	out, eerr := expr.Eval(src, env)
	if eerr != nil {
		return nil, &ResolutionError{Kind: KindEvaluateExpression, Message: eerr.Error()}
	}
	return out, nil
}
