// Package parser extracts YAML front matter from Markdown documents.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
)

// Meta holds the recognized front matter fields of a document.
// Zero value is the default for documents without front matter.
type Meta struct {
	Description string
	Globs       []string
	AlwaysApply bool
}

// Result holds the output of parsing a Markdown document.
type Result struct {
	Meta Meta
	Body string
}

// frontmatter mirrors the YAML schema. Globs accepts either a list or a
// single comma-joined string, so it unmarshals loosely.
type frontmatter struct {
	Description *string   `yaml:"description"`
	Globs       yaml.Node `yaml:"globs"`
	AlwaysApply bool      `yaml:"alwaysApply"`
}

// Parse splits YAML front matter (between leading --- delimiters) from
// the Markdown body. A document without front matter yields default Meta
// and the full text as body. Malformed YAML or a schema-invalid globs
// field is a parse failure; the caller turns it into an error placeholder.
func Parse(path string, data []byte) (*Result, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return &Result{Body: string(data)}, nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter; the whole document is body.
		return &Result{Body: string(data)}, nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm frontmatter
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, fmt.Errorf("parser: %s: %w: %v", path, apperr.ErrParse, err)
	}

	globs, err := normalizeGlobs(fm.Globs)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w: %v", path, apperr.ErrParse, err)
	}

	meta := Meta{Globs: globs, AlwaysApply: fm.AlwaysApply}
	if fm.Description != nil {
		meta.Description = *fm.Description
	}
	return &Result{Meta: meta, Body: body}, nil
}

// normalizeGlobs accepts a YAML list of strings or a single comma-joined
// string and returns a cleaned list. Null and absent both yield nil.
func normalizeGlobs(node yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return splitGlobList(s), nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		var out []string
		for _, g := range raw {
			out = append(out, splitGlobList(g)...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("globs: unsupported YAML node kind %d", node.Kind)
	}
}

func splitGlobList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
