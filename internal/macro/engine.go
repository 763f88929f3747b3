package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gfitzpatrick-eightfold/Macros/internal/logger"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
)

// Custom macro kinds are small Go snippets interpreted at load time. A
// snippet declares package macrodef and exports
//
//	func Resolve(kwargs map[string]interface{}, document interface{}) interface{}
//
// plus optional comment directives:
//
//	// Description: one-line description for prompting
//	// Params: first:path, last:path, greeting?:template
//
// Directive shapes are scalar, path, template and macro_list; a trailing ?
// marks a kwarg optional. Path- and template-shaped kwargs are resolved
// against the document before Resolve is called, so snippets only see final
// values.

const customNamespace = "custom_macros."

var (
	reParamsDirective      = regexp.MustCompile(`//\s*Params:\s*(.+)`)
	reDescriptionDirective = regexp.MustCompile(`//\s*Description:\s*(.+)`)
)

// LoadCustomMacros interprets every .go snippet in dir and registers each as
// a macro kind named custom_macros.<file base name>. A missing directory is
// not an error; a snippet that fails to compile is.
func (r *Registry) LoadCustomMacros(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".go" {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return count, err
		}

		kind := customNamespace + strings.TrimSuffix(e.Name(), ".go")
		def, err := compileCustomMacro(kind, string(src))
		if err != nil {
			return count, fmt.Errorf("custom macro %s: %v", e.Name(), err)
		}
		if err := r.Register(def); err != nil {
			return count, err
		}
		logger.Info("Loaded custom macro", zap.String("kind", kind))
		count++
	}
	return count, nil
}

func compileCustomMacro(kind, src string) (*Definition, error) {
	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)

	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("compile error: %v", err)
	}
	v, err := i.Eval("macrodef.Resolve")
	if err != nil {
		return nil, fmt.Errorf("missing Resolve function: %v", err)
	}
	fn, ok := v.Interface().(func(map[string]interface{}, interface{}) interface{})
	if !ok {
		return nil, fmt.Errorf("Resolve has the wrong signature")
	}

	params, err := parseParamsDirective(src)
	if err != nil {
		return nil, err
	}

	description := ""
	if m := reDescriptionDirective.FindStringSubmatch(src); m != nil {
		description = strings.TrimSpace(m[1])
	}

	return &Definition{
		Kind:        kind,
		Description: description,
		Params:      params,
		Eval:        customEvaluator(kind, params, fn),
	}, nil
}

// customEvaluator pre-resolves path- and template-shaped kwargs so the
// interpreted snippet receives plain values instead of expressions.
func customEvaluator(kind string, params []Param, fn func(map[string]interface{}, interface{}) interface{}) Evaluator {
	return func(_ *Registry, kwargs map[string]interface{}, document interface{}) (interface{}, error) {
		resolved := make(map[string]interface{}, len(kwargs))
		for k, v := range kwargs {
			resolved[k] = v
		}
		for _, p := range params {
			raw, ok := kwargs[p.Name]
			if !ok {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				continue
			}
			switch p.Shape {
			case ShapePath:
				v, found := EvaluatePath(s, document)
				if !found {
					v = nil
				}
				resolved[p.Name] = v
			case ShapeTemplate:
				out, err := RenderTemplate(s, document)
				if err != nil {
					return nil, &ResolutionError{Kind: kind, Message: err.Error()}
				}
				resolved[p.Name] = out
			}
		}
		return fn(resolved, document), nil
	}
}

func parseParamsDirective(src string) ([]Param, error) {
	m := reParamsDirective.FindStringSubmatch(src)
	if m == nil {
		return nil, nil
	}

	var params []Param
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, shapeName, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("malformed Params directive entry %q", part)
		}
		name = strings.TrimSpace(name)
		required := true
		if strings.HasSuffix(name, "?") {
			name = strings.TrimSuffix(name, "?")
			required = false
		}

		var shape Shape
		switch strings.TrimSpace(shapeName) {
		case "scalar":
			shape = ShapeScalar
		case "path":
			shape = ShapePath
		case "template":
			shape = ShapeTemplate
		case "macro_list":
			shape = ShapeMacroList
		default:
			return nil, fmt.Errorf("unknown kwarg shape %q in Params directive", shapeName)
		}
		params = append(params, Param{Name: name, Shape: shape, Required: required})
	}
	return params, nil
}
