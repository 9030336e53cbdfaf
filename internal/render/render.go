// Package render turns an ordered context sequence into text for an
// agent prompt, substituting embedded links with excerpted content.
package render

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/assemble"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/links"
)

// Renderer formats assembled context items.
type Renderer struct {
	rel    func(path string) string // display form of an absolute path
	logger *slog.Logger
}

// New creates a Renderer. rel converts absolute node paths to their
// display form (typically root-relative); nil means identity.
func New(rel func(string) string, logger *slog.Logger) *Renderer {
	if rel == nil {
		rel = func(p string) string { return p }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{rel: rel, logger: logger}
}

// Render produces the final textual context: one <document> block per
// item, in sequence order, with every embedding link occurrence replaced
// by a nested <embed> block holding the target's (optionally sliced)
// content. Non-embedding links are left untouched.
func (r *Renderer) Render(items []assemble.ContextItem, ix *graph.Index) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		r.renderItem(&b, it, ix)
	}
	return b.String()
}

func (r *Renderer) renderItem(b *strings.Builder, it assemble.ContextItem, ix *graph.Index) {
	fmt.Fprintf(b, "<document path=%q reason=%q", r.rel(it.Node.Path), it.Classification.String())
	if it.Classification == assemble.ClassRelated {
		fmt.Fprintf(b, " linkedFrom=%q anchor=%q", r.rel(it.LinkedFromPath), it.LinkedViaAnchor)
	}
	b.WriteString(">\n")
	b.WriteString(strings.TrimRight(r.substituteEmbeds(it.Node, ix), "\n"))
	b.WriteString("\n</document>\n")
}

// substituteEmbeds replaces every whole/range link occurrence in the
// node's body with the target content. A failed or missing target leaves
// the occurrence untouched.
func (r *Renderer) substituteEmbeds(n *graph.DocumentNode, ix *graph.Index) string {
	body := n.Raw
	for _, l := range n.Links {
		if l.Embed == links.EmbedNone {
			continue
		}
		target, ok := ix.Node(l.TargetPath)
		if !ok || target.Failed() {
			r.logger.Warn("render: embed target unavailable",
				slog.String("source", n.Path),
				slog.String("target", l.TargetPath))
			continue
		}
		occurrence := fmt.Sprintf("[%s](%s)", l.AnchorText, l.RawTarget)
		block := r.embedBlock(l, target)
		body = strings.ReplaceAll(body, occurrence, block)
	}
	return body
}

func (r *Renderer) embedBlock(l links.DocumentLink, target *graph.DocumentNode) string {
	content := target.Raw
	lines := ""
	if l.Embed == links.EmbedRange {
		content, lines = slice(content, l.Range)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<embed path=%q", r.rel(target.Path))
	if lines != "" {
		fmt.Fprintf(&b, " lines=%q", lines)
	}
	b.WriteString(">\n")
	b.WriteString(strings.TrimRight(content, "\n"))
	b.WriteString("\n</embed>")
	return b.String()
}

// slice cuts content to a 1-based inclusive line range. An empty from
// means line 1; an open end means the last line. Bounds are clamped to
// the document.
func slice(content string, rng links.LineRange) (string, string) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")

	from := rng.From
	if from < 1 {
		from = 1
	}
	to := len(lines)
	label := fmt.Sprintf("%d-end", from)
	if !rng.ToEnd {
		to = rng.To
		if to > len(lines) {
			to = len(lines)
		}
		label = fmt.Sprintf("%d-%d", from, rng.To)
	}
	if from > len(lines) || to < from {
		return "", label
	}
	return strings.Join(lines[from-1:to], "\n"), label
}
