package generate

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert at creating macros for data transformation.
Your task is to generate a macro configuration that maps external API data to internal fields.
The response MUST be a valid JSON object mapping each target field name to:
{
    "macro": "name_of_macro",
    "kwargs": {
        // any required parameters for the macro
    }
}
Choose each macro from the available macro types listed below.
IMPORTANT: Respond ONLY with the JSON object, no additional text or explanation.`

const exampleFormat = `{
    "field_name": {
        "macro": "standard_macros.chained_macro",
        "kwargs": {
            "inner_macro_list": [
                {
                    "macro": "adapter_macros.substitute_template",
                    "kwargs": {
                        "template_string": "{{ some.path }} {{ another.path }}"
                    }
                }
            ]
        }
    }
}`

// BuildPrompt assembles the full generation prompt from the requirement, the
// pretty-printed sample document, and the registry's kind catalog.
func (s *Service) BuildPrompt(requirement string, sample interface{}) (string, error) {
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sample document is not serializable: %v", err)
	}

	kindsJSON, err := json.MarshalIndent(s.registry.Kinds(), "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nUser Requirement: ")
	b.WriteString(requirement)
	b.WriteString("\n\nSample API Response:\n")
	b.Write(sampleJSON)
	b.WriteString("\n\nAvailable Macros:\n")
	b.Write(kindsJSON)
	b.WriteString(`

The macro configuration must:
1. Use only the available macros listed above
2. Include a 'macro' field with the exact macro name
3. Include a 'kwargs' field with all required parameters
4. Be a valid JSON object

Example format:
`)
	b.WriteString(exampleFormat)
	b.WriteString("\n\nRespond ONLY with the JSON object, no additional text or explanation.\n")
	return b.String(), nil
}
