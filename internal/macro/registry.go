package macro

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/gfitzpatrick-eightfold/Macros/internal/logger"
	"go.uber.org/zap"
)

// Built-in macro kinds.
const (
	KindExtractPath        = "standard_macros.extract_path"
	KindChainedMacro       = "standard_macros.chained_macro"
	KindEvaluateExpression = "standard_macros.evaluate_expression"
	KindSubstituteTemplate = "adapter_macros.substitute_template"
)

// Shape is the expected shape of a macro kwarg.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapePath
	ShapeTemplate
	ShapeMacroList
)

func (s Shape) String() string {
	switch s {
	case ShapePath:
		return "path"
	case ShapeTemplate:
		return "template"
	case ShapeMacroList:
		return "macro_list"
	default:
		return "scalar"
	}
}

// Param describes one kwarg of a macro kind.
type Param struct {
	Name     string
	Shape    Shape
	Required bool
}

// Evaluator resolves one invocation of a macro kind against a document.
// Evaluators receive the registry so recursive kinds can dispatch inner
// invocations through the same lookup table the validator uses.
type Evaluator func(r *Registry, kwargs map[string]interface{}, document interface{}) (interface{}, error)

// Definition is the registry entry for a macro kind: its parameter schema
// and its evaluator.
type Definition struct {
	Kind        string
	Description string
	Params      []Param
	Eval        Evaluator
}

// Registry maps macro kind names to their definitions. It is populated at
// startup (built-ins, the definitions document, custom snippets) and
// read-only afterwards; both the validator and the resolver consult it.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Definition
}

// NewRegistry returns a registry preloaded with the built-in macro kinds.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]*Definition)}

	r.mustRegister(&Definition{
		Kind:        KindExtractPath,
		Description: "Extracts the value at a dotted/bracketed path in the API response.",
		Params:      []Param{{Name: "expr", Shape: ShapePath, Required: true}},
		Eval:        evalExtractPath,
	})
	r.mustRegister(&Definition{
		Kind:        KindSubstituteTemplate,
		Description: "Renders a template string, substituting {{ path }} placeholders with values from the API response.",
		Params:      []Param{{Name: "template_string", Shape: ShapeTemplate, Required: true}},
		Eval:        evalSubstituteTemplate,
	})
	r.mustRegister(&Definition{
		Kind:        KindChainedMacro,
		Description: "Runs an ordered list of inner macros against the same document; the last result becomes the field value.",
		Params:      []Param{{Name: "inner_macro_list", Shape: ShapeMacroList, Required: true}},
		Eval:        evalChainedMacro,
	})
	r.mustRegister(&Definition{
		Kind:        KindEvaluateExpression,
		Description: "Evaluates an expression against the API response; top-level fields are in scope, the whole response as 'document'.",
		Params:      []Param{{Name: "expression", Shape: ShapeScalar, Required: true}},
		Eval:        evalEvaluateExpression,
	})

	return r
}

// Register adds a macro kind. Registering an already known kind or a
// definition without an evaluator is an error.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Kind == "" {
		return fmt.Errorf("macro definition must name a kind")
	}
	if def.Eval == nil {
		return fmt.Errorf("macro %q has no evaluator", def.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[def.Kind]; exists {
		return fmt.Errorf("macro %q is already registered", def.Kind)
	}
	r.kinds[def.Kind] = def
	return nil
}

func (r *Registry) mustRegister(def *Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition for a kind, if registered.
func (r *Registry) Lookup(kind string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.kinds[kind]
	return def, ok
}

// ParamInfo is the serializable description of one kwarg.
type ParamInfo struct {
	Name     string `json:"name"`
	Shape    string `json:"shape"`
	Required bool   `json:"required"`
}

// KindInfo is the serializable description of one macro kind, used for
// prompting the generation backend and for the MCP surface.
type KindInfo struct {
	Kind        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamInfo `json:"params"`
}

// Kinds returns every registered kind with its description and parameter
// schema, sorted by name.
func (r *Registry) Kinds() []KindInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]KindInfo, 0, len(r.kinds))
	for _, def := range r.kinds {
		info := KindInfo{Kind: def.Kind, Description: def.Description}
		for _, p := range def.Params {
			info.Params = append(info.Params, ParamInfo{Name: p.Name, Shape: p.Shape.String(), Required: p.Required})
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Kind < infos[j].Kind })
	return infos
}

// KindDoc is one entry of the external macro definitions document.
type KindDoc struct {
	MacroName   string `json:"macro_name"`
	MacroType   string `json:"macro_type"`
	Description string `json:"description"`
}

// DefinitionsDoc mirrors the layout of definitions/macro_definitions.json.
type DefinitionsDoc struct {
	Macros struct {
		DocstringSchema []KindDoc `json:"docstring_schema"`
	} `json:"macros"`
}

// LoadDefinitions reads the external definitions document and merges its
// descriptions into the registered kinds. Entries naming kinds with no
// registered evaluator are skipped; documentation alone cannot make a kind
// resolvable.
func (r *Registry) LoadDefinitions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read macro definitions: %v", err)
	}

	var doc DefinitionsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse macro definitions: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, kd := range doc.Macros.DocstringSchema {
		def, ok := r.kinds[kd.MacroName]
		if !ok {
			logger.Warn("Definitions document names an unregistered macro kind", zap.String("kind", kd.MacroName))
			continue
		}
		if kd.Description != "" {
			def.Description = kd.Description
		}
	}
	return nil
}
