package parser

import (
	"errors"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ndescription: API conventions\nglobs:\n  - \"**/*.ts\"\n  - \"**/*.tsx\"\nalwaysApply: true\n---\n# Conventions\nBody text.\n")
	r, err := Parse("rules/api.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Description != "API conventions" {
		t.Errorf("description = %q", r.Meta.Description)
	}
	if len(r.Meta.Globs) != 2 || r.Meta.Globs[0] != "**/*.ts" || r.Meta.Globs[1] != "**/*.tsx" {
		t.Errorf("globs = %v", r.Meta.Globs)
	}
	if !r.Meta.AlwaysApply {
		t.Error("alwaysApply should be true")
	}
	if r.Body != "# Conventions\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatterDefaults(t *testing.T) {
	r, err := Parse("plain.md", []byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Description != "" || r.Meta.Globs != nil || r.Meta.AlwaysApply {
		t.Errorf("meta should be zero, got %+v", r.Meta)
	}
	if r.Body != "# Just a heading\nSome text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_CommaJoinedGlobs(t *testing.T) {
	input := []byte("---\nglobs: \"**/*.go, **/*.mod\"\n---\nbody\n")
	r, err := Parse("go.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Meta.Globs) != 2 || r.Meta.Globs[0] != "**/*.go" || r.Meta.Globs[1] != "**/*.mod" {
		t.Errorf("globs = %v", r.Meta.Globs)
	}
}

func TestParse_NullGlobs(t *testing.T) {
	input := []byte("---\ndescription: x\nglobs:\n---\nbody\n")
	r, err := Parse("x.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Globs != nil {
		t.Errorf("globs = %v, want nil", r.Meta.Globs)
	}
}

func TestParse_InvalidYAMLIsParseError(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	_, err := Parse("bad.md", input)
	if !errors.Is(err, apperr.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestParse_UnclosedFrontmatterIsBody(t *testing.T) {
	input := []byte("--- not front matter\ntext\n")
	r, err := Parse("odd.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}
