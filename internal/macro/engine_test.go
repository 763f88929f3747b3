package macro

import (
	"os"
	"path/filepath"
	"testing"
)

const initialsSnippet = `package macrodef

import "strings"

// Description: Upper-case initials built from two name values.
// Params: first:path, last:path

func Resolve(kwargs map[string]interface{}, document interface{}) interface{} {
	var b strings.Builder
	for _, key := range []string{"first", "last"} {
		s, _ := kwargs[key].(string)
		if s == "" {
			continue
		}
		b.WriteString(strings.ToUpper(s[:1]))
	}
	return b.String()
}
`

func writeSnippet(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCustomMacros(t *testing.T) {
	tmpDir := t.TempDir()
	writeSnippet(t, tmpDir, "initials.go", initialsSnippet)

	r := NewRegistry()
	loaded, err := r.LoadCustomMacros(tmpDir)
	if err != nil {
		t.Fatalf("LoadCustomMacros failed: %v", err)
	}
	if loaded != 1 {
		t.Fatalf("expected 1 loaded macro, got %d", loaded)
	}

	def, ok := r.Lookup("custom_macros.initials")
	if !ok {
		t.Fatal("custom kind not registered")
	}
	if def.Description != "Upper-case initials built from two name values." {
		t.Errorf("description directive not parsed, got %q", def.Description)
	}
	if len(def.Params) != 2 || def.Params[0].Name != "first" || def.Params[0].Shape != ShapePath {
		t.Errorf("params directive not parsed, got %+v", def.Params)
	}
}

func TestCustomMacro_ValidateAndResolve(t *testing.T) {
	tmpDir := t.TempDir()
	writeSnippet(t, tmpDir, "initials.go", initialsSnippet)

	r := NewRegistry()
	if _, err := r.LoadCustomMacros(tmpDir); err != nil {
		t.Fatalf("LoadCustomMacros failed: %v", err)
	}

	doc := sampleDocument(t)
	cfg := parseConfig(t, `{
		"initials": {
			"macro": "custom_macros.initials",
			"kwargs": {
				"first": "candidate.personalInfo.firstName",
				"last": "candidate.personalInfo.lastName"
			}
		}
	}`)

	if _, err := r.ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}

	got, err := r.ResolveAll(cfg, doc)
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if got["initials"] != "JD" {
		t.Errorf("initials = %v, want %q", got["initials"], "JD")
	}
}

func TestCustomMacro_MissingRequiredKwarg(t *testing.T) {
	tmpDir := t.TempDir()
	writeSnippet(t, tmpDir, "initials.go", initialsSnippet)

	r := NewRegistry()
	if _, err := r.LoadCustomMacros(tmpDir); err != nil {
		t.Fatal(err)
	}

	cfg := parseConfig(t, `{
		"initials": {"macro": "custom_macros.initials", "kwargs": {"first": "candidate.personalInfo.firstName"}}
	}`)
	if _, err := r.ValidateConfig(cfg); err == nil {
		t.Error("ValidateConfig should reject a missing required kwarg of a custom kind")
	}
}

func TestLoadCustomMacros_BadSnippet(t *testing.T) {
	tmpDir := t.TempDir()
	writeSnippet(t, tmpDir, "broken.go", "package macrodef\n\nfunc Resolve( {")

	r := NewRegistry()
	if _, err := r.LoadCustomMacros(tmpDir); err == nil {
		t.Error("LoadCustomMacros should fail on a snippet that does not compile")
	}
}

func TestLoadCustomMacros_WrongSignature(t *testing.T) {
	tmpDir := t.TempDir()
	writeSnippet(t, tmpDir, "wrong.go", `package macrodef

func Resolve(n int) int { return n }
`)

	r := NewRegistry()
	if _, err := r.LoadCustomMacros(tmpDir); err == nil {
		t.Error("LoadCustomMacros should reject a Resolve with the wrong signature")
	}
}

func TestLoadCustomMacros_MissingDir(t *testing.T) {
	r := NewRegistry()
	loaded, err := r.LoadCustomMacros(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing directory should not be an error: %v", err)
	}
	if loaded != 0 {
		t.Errorf("expected 0 loaded macros, got %d", loaded)
	}
}
