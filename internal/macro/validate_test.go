package macro

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func parseConfig(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("failed to parse test config: %v", err)
	}
	return cfg
}

func TestValidateConfig_Valid(t *testing.T) {
	r := NewRegistry()
	cfg := parseConfig(t, `{
		"first_name": {
			"macro": "standard_macros.extract_path",
			"kwargs": {"expr": "candidate.personalInfo.firstName"}
		},
		"full_name": {
			"macro": "standard_macros.chained_macro",
			"kwargs": {
				"inner_macro_list": [
					{
						"macro": "adapter_macros.substitute_template",
						"kwargs": {"template_string": "{{ candidate.personalInfo.firstName }} {{ candidate.personalInfo.lastName }}"}
					}
				]
			}
		}
	}`)

	got, err := r.ValidateConfig(cfg)
	if err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Error("ValidateConfig should return the same document on success")
	}
}

func TestValidateConfig_Errors(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name     string
		raw      string
		wantCode ValidationCode
	}{
		{
			name:     "missing macro key",
			raw:      `{"f": {"kwargs": {}}}`,
			wantCode: CodeMissingField,
		},
		{
			name:     "missing kwargs key",
			raw:      `{"f": {"macro": "standard_macros.extract_path"}}`,
			wantCode: CodeMissingField,
		},
		{
			name:     "unknown macro kind",
			raw:      `{"f": {"macro": "standard_macros.reverse_string", "kwargs": {}}}`,
			wantCode: CodeUnknownMacro,
		},
		{
			name:     "missing required kwarg",
			raw:      `{"f": {"macro": "standard_macros.extract_path", "kwargs": {}}}`,
			wantCode: CodeMissingKwarg,
		},
		{
			name:     "invocation not a mapping",
			raw:      `{"f": "not a mapping"}`,
			wantCode: CodeMalformedShape,
		},
		{
			name:     "macro not a string",
			raw:      `{"f": {"macro": 3, "kwargs": {}}}`,
			wantCode: CodeMalformedShape,
		},
		{
			name:     "kwargs not a mapping",
			raw:      `{"f": {"macro": "standard_macros.extract_path", "kwargs": []}}`,
			wantCode: CodeMalformedShape,
		},
		{
			name:     "path kwarg not a string",
			raw:      `{"f": {"macro": "standard_macros.extract_path", "kwargs": {"expr": 12}}}`,
			wantCode: CodeMalformedShape,
		},
		{
			name:     "path kwarg does not parse",
			raw:      `{"f": {"macro": "standard_macros.extract_path", "kwargs": {"expr": "a..b"}}}`,
			wantCode: CodeMalformedShape,
		},
		{
			name:     "template kwarg does not parse",
			raw:      `{"f": {"macro": "adapter_macros.substitute_template", "kwargs": {"template_string": "{{ open"}}}`,
			wantCode: CodeMalformedShape,
		},
		{
			name:     "empty inner macro list",
			raw:      `{"f": {"macro": "standard_macros.chained_macro", "kwargs": {"inner_macro_list": []}}}`,
			wantCode: CodeMalformedShape,
		},
		{
			name: "nested invocation missing kwarg",
			raw: `{"f": {"macro": "standard_macros.chained_macro", "kwargs": {"inner_macro_list": [
				{"macro": "adapter_macros.substitute_template", "kwargs": {}}
			]}}}`,
			wantCode: CodeMissingKwarg,
		},
		{
			name:     "expression kwarg not a scalar",
			raw:      `{"f": {"macro": "standard_macros.evaluate_expression", "kwargs": {"expression": {"nested": true}}}}`,
			wantCode: CodeMalformedShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ValidateConfig(parseConfig(t, tt.raw))
			if err == nil {
				t.Fatal("ValidateConfig should fail")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is %T, want *ValidationError", err)
			}
			if verr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s (%v)", verr.Code, tt.wantCode, verr)
			}
		})
	}
}

func TestValidateConfig_Deterministic(t *testing.T) {
	r := NewRegistry()
	cfg := parseConfig(t, `{
		"a": {"macro": "standard_macros.extract_path", "kwargs": {}},
		"b": {"macro": "no_such.macro", "kwargs": {}}
	}`)

	_, first := r.ValidateConfig(cfg)
	for i := 0; i < 10; i++ {
		_, err := r.ValidateConfig(cfg)
		if err == nil || err.Error() != first.Error() {
			t.Fatalf("validation is not deterministic: %v vs %v", first, err)
		}
	}
}

func TestValidateInvocation(t *testing.T) {
	r := NewRegistry()

	inv := parseConfig(t, `{"macro": "standard_macros.extract_path", "kwargs": {"expr": "a.b[0]"}}`)
	if err := r.ValidateInvocation(inv); err != nil {
		t.Errorf("ValidateInvocation failed: %v", err)
	}

	bad := parseConfig(t, `{"macro": "standard_macros.extract_path", "kwargs": {}}`)
	if err := r.ValidateInvocation(bad); err == nil {
		t.Error("ValidateInvocation should reject a missing required kwarg")
	}
}

func TestValidateConfig_NestedErrorLocation(t *testing.T) {
	r := NewRegistry()
	cfg := parseConfig(t, `{
		"full_name": {"macro": "standard_macros.chained_macro", "kwargs": {"inner_macro_list": [
			{"macro": "adapter_macros.substitute_template", "kwargs": {}}
		]}}
	}`)

	_, err := r.ValidateConfig(cfg)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error is %T, want *ValidationError", err)
	}
	if verr.Field != "full_name.inner_macro_list[0]" {
		t.Errorf("field = %q, want %q", verr.Field, "full_name.inner_macro_list[0]")
	}
}
