// Package match implements glob pattern matching for document discovery
// and auto-classification. Patterns support *, ?, and ** (which crosses
// directory separators). Dot-files are matched like any other file.
package match

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Pattern is a compiled glob pattern.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// Compile translates a glob pattern into a Pattern. Compilation never
// fails: metacharacters outside glob syntax are escaped literally.
func Compile(glob string) *Pattern {
	norm := normalize(glob)
	return &Pattern{
		raw: norm,
		re:  regexp.MustCompile("^" + globToRegex(norm) + "$"),
	}
}

// CompileAll compiles each glob in globs.
func CompileAll(globs []string) []*Pattern {
	out := make([]*Pattern, 0, len(globs))
	for _, g := range globs {
		out = append(out, Compile(g))
	}
	return out
}

// Match reports whether path (slash- or OS-separated, absolute or
// relative) matches the pattern. A pattern without a slash matches
// against the path's base name as well as the full path, so "*.ts"
// behaves like "**/*.ts".
func (p *Pattern) Match(path string) bool {
	norm := normalize(path)
	if p.re.MatchString(norm) {
		return true
	}
	if !strings.Contains(p.raw, "/") {
		return p.re.MatchString(filepath.Base(norm))
	}
	return false
}

// String returns the normalized pattern text.
func (p *Pattern) String() string { return p.raw }

// Any reports whether path matches at least one of patterns.
func Any(patterns []*Pattern, path string) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}

func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]

		if ch == '*' {
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				// "**/" may match zero directories.
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
					b.WriteString(`(?:.*/)?`)
					continue
				}
				b.WriteString(`.*`)
				continue
			}
			b.WriteString(`[^/]*`)
			continue
		}

		if ch == '?' {
			b.WriteString(`[^/]`)
			continue
		}

		if strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)) {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func normalize(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
