// Package graph builds a cycle-safe link graph over documentation files.
//
// A build loads every discovered document, extracts its qualifying links,
// and recursively loads every linked document until the reachable set is
// exhausted. The result is an immutable Index snapshot; the next build
// discards it wholesale (there is no incremental re-indexing).
package graph

import (
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/parser"
)

// NodeError describes why a node is an error placeholder.
type NodeError struct {
	Reason string `json:"reason"`
}

// DocumentNode is one document in the graph, keyed by absolute path.
// Nodes are immutable once stored in an Index.
type DocumentNode struct {
	// Path is the absolute, canonical identity of the document.
	Path string
	// Raw is the body after front-matter stripping for markdown
	// documents, or the raw file content otherwise.
	Raw string
	// Meta holds the parsed front matter, defaulted when absent.
	Meta parser.Meta
	// Links are the outbound qualifying links in occurrence order,
	// populated only for healthy markdown nodes.
	Links []links.DocumentLink
	// IsMarkdown is derived from the filename suffix.
	IsMarkdown bool
	// LoadErr, when set, marks the node a placeholder: it occupies the
	// graph so inbound links resolve, but it is excluded from
	// classification and expansion.
	LoadErr *NodeError
}

// Failed reports whether the node is an error placeholder.
func (n *DocumentNode) Failed() bool { return n.LoadErr != nil }

// markdownSuffixes are the filename suffixes treated as markdown.
var markdownSuffixes = []string{".md", ".mdc"}

// IsMarkdownPath reports whether path names a markdown document.
func IsMarkdownPath(path string) bool {
	lower := strings.ToLower(path)
	for _, suf := range markdownSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

// Index is an immutable snapshot of one build cycle.
type Index struct {
	nodes map[string]*DocumentNode
}

// Node returns the node for an absolute path, if present.
func (ix *Index) Node(path string) (*DocumentNode, bool) {
	n, ok := ix.nodes[path]
	return n, ok
}

// Len returns the number of nodes, error placeholders included.
func (ix *Index) Len() int { return len(ix.nodes) }

// Paths returns every node path in ascending order.
func (ix *Index) Paths() []string {
	out := make([]string, 0, len(ix.nodes))
	for p := range ix.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Nodes returns every node ordered by path.
func (ix *Index) Nodes() []*DocumentNode {
	out := make([]*DocumentNode, 0, len(ix.nodes))
	for _, p := range ix.Paths() {
		out = append(out, ix.nodes[p])
	}
	return out
}
