// Package assemble turns a document graph into an ordered context sequence.
//
// Assembly is a pure function of the index snapshot, the caller inputs,
// and the hoist flag: identical inputs against an unchanged index yield
// an identical ordered output.
package assemble

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/match"
)

// Classification says why a document is included, in priority order
// (highest first).
type Classification int

const (
	ClassAlways Classification = iota
	ClassAuto
	ClassAgent
	ClassManual
	ClassRelated
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case ClassAlways:
		return "always"
	case ClassAuto:
		return "auto"
	case ClassAgent:
		return "agent"
	case ClassManual:
		return "manual"
	case ClassRelated:
		return "related"
	default:
		return "unknown"
	}
}

// ContextItem is a document node wrapped with its inclusion reason.
type ContextItem struct {
	Node           *graph.DocumentNode
	Classification Classification

	// LinkedViaAnchor and LinkedFromPath record provenance for related
	// items: the anchor text and source of the link that first
	// discovered this node. Empty for non-related classifications.
	LinkedViaAnchor string
	LinkedFromPath  string
}

// Assembler classifies, expands, and orders context items.
type Assembler struct {
	root   string // project root; attached files are taken relative to it
	hoist  bool
	logger *slog.Logger
}

// New creates an Assembler. When hoist is true, related items are placed
// immediately before their primary linker; otherwise immediately after.
func New(root string, hoist bool, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{root: root, hoist: hoist, logger: logger}
}

// Assemble classifies every non-error node of the index against the
// caller inputs, expands the seed set breadth-first through non-embedded
// links, and returns the hoist-ordered result. The only possible error
// is an internal ordering invariant violation, which indicates a defect.
func (a *Assembler) Assemble(ix *graph.Index, attachedFiles, agentSelected []string) ([]ContextItem, error) {
	attachedRel := a.relativize(attachedFiles)
	attachedAbs := a.absolutize(attachedFiles)
	agentAbs := a.absolutize(agentSelected)

	items := a.classify(ix, attachedRel, attachedAbs, agentAbs)
	a.expandRelated(ix, items)
	return a.order(items)
}

// rule pairs a predicate with the classification it grants. Rules are
// evaluated in order and the first match wins.
type rule struct {
	class Classification
	match func(n *graph.DocumentNode) bool
}

// classify evaluates every non-error node against the ordered rule list
// and returns the seed items keyed by path.
func (a *Assembler) classify(ix *graph.Index, attachedRel map[string]struct{}, attachedAbs, agentAbs map[string]struct{}) map[string]*ContextItem {
	rules := []rule{
		{ClassAlways, func(n *graph.DocumentNode) bool {
			return n.Meta.AlwaysApply
		}},
		{ClassAuto, func(n *graph.DocumentNode) bool {
			if len(n.Meta.Globs) == 0 {
				return false
			}
			patterns := match.CompileAll(n.Meta.Globs)
			for rel := range attachedRel {
				if match.Any(patterns, rel) {
					return true
				}
			}
			return false
		}},
		{ClassAgent, func(n *graph.DocumentNode) bool {
			_, ok := agentAbs[n.Path]
			return ok
		}},
		{ClassManual, func(n *graph.DocumentNode) bool {
			_, ok := attachedAbs[n.Path]
			return ok
		}},
	}

	classify := func(n *graph.DocumentNode) (Classification, bool) {
		for _, r := range rules {
			if r.match(n) {
				return r.class, true
			}
		}
		return 0, false
	}

	items := make(map[string]*ContextItem)
	for _, n := range ix.Nodes() {
		if n.Failed() {
			continue
		}
		if class, ok := classify(n); ok {
			items[n.Path] = &ContextItem{Node: n, Classification: class}
		}
	}
	return items
}

// expandRelated walks breadth-first from the seed items, pulling in every
// document reachable through non-embedded links. First discovery wins:
// a path already present under any classification is never re-added, so
// provenance is stable. The visited set is distinct from item membership;
// it guarantees each path is expanded at most once, making cycles safe.
func (a *Assembler) expandRelated(ix *graph.Index, items map[string]*ContextItem) {
	queue := make([]string, 0, len(items))
	for p := range items {
		queue = append(queue, p)
	}
	sort.Strings(queue)

	visited := make(map[string]struct{})
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if _, ok := visited[path]; ok {
			continue
		}
		visited[path] = struct{}{}

		node, ok := ix.Node(path)
		if !ok {
			continue
		}
		for _, l := range node.Links {
			if l.Embed != links.EmbedNone {
				continue
			}
			target, ok := ix.Node(l.TargetPath)
			if !ok {
				continue
			}
			if target.Failed() {
				a.logger.Debug("assemble: skipping failed link target",
					slog.String("from", path),
					slog.String("target", l.TargetPath))
				continue
			}
			if _, present := items[l.TargetPath]; present {
				continue
			}
			items[l.TargetPath] = &ContextItem{
				Node:            target,
				Classification:  ClassRelated,
				LinkedViaAnchor: l.AnchorText,
				LinkedFromPath:  path,
			}
			queue = append(queue, l.TargetPath)
		}
	}
}

// order produces the final hoist-aware sequence: non-related items sorted
// by classification priority then path, each related item attached to its
// primary linker (the earliest sorted non-related item linking to it),
// orphans appended at the end.
func (a *Assembler) order(items map[string]*ContextItem) ([]ContextItem, error) {
	var nonRelated, related []*ContextItem
	for _, it := range items {
		if it.Classification == ClassRelated {
			related = append(related, it)
		} else {
			nonRelated = append(nonRelated, it)
		}
	}

	sort.Slice(nonRelated, func(i, j int) bool {
		if nonRelated[i].Classification != nonRelated[j].Classification {
			return nonRelated[i].Classification < nonRelated[j].Classification
		}
		return nonRelated[i].Node.Path < nonRelated[j].Node.Path
	})

	// Primary linker: earliest sorted non-related item whose node links
	// (non-embedded) to the related item.
	linksTo := func(n *graph.DocumentNode, path string) bool {
		for _, l := range n.Links {
			if l.Embed == links.EmbedNone && l.TargetPath == path {
				return true
			}
		}
		return false
	}

	groups := make(map[string][]*ContextItem)
	var orphans []*ContextItem
	for _, r := range related {
		primary := ""
		for _, nr := range nonRelated {
			if linksTo(nr.Node, r.Node.Path) {
				primary = nr.Node.Path
				break
			}
		}
		if primary == "" {
			orphans = append(orphans, r)
			continue
		}
		groups[primary] = append(groups[primary], r)
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Node.Path < g[j].Node.Path })
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Node.Path < orphans[j].Node.Path })

	out := make([]ContextItem, 0, len(items))
	for _, nr := range nonRelated {
		group := groups[nr.Node.Path]
		if a.hoist {
			for _, r := range group {
				out = append(out, *r)
			}
			out = append(out, *nr)
		} else {
			out = append(out, *nr)
			for _, r := range group {
				out = append(out, *r)
			}
		}
	}
	for _, r := range orphans {
		out = append(out, *r)
	}

	// The final sequence must be a permutation of the collected items; a
	// mismatch is a logic bug, not a data problem.
	if len(out) != len(items) {
		return nil, fmt.Errorf("assemble: internal: ordered %d items, expected %d", len(out), len(items))
	}
	seen := make(map[string]struct{}, len(out))
	for _, it := range out {
		if _, dup := seen[it.Node.Path]; dup {
			return nil, fmt.Errorf("assemble: internal: duplicate item %s", it.Node.Path)
		}
		if _, ok := items[it.Node.Path]; !ok {
			return nil, fmt.Errorf("assemble: internal: unexpected item %s", it.Node.Path)
		}
		seen[it.Node.Path] = struct{}{}
	}
	return out, nil
}

// relativize maps attached files to root-relative slash paths for glob
// matching. Files outside the root keep their original form.
func (a *Assembler) relativize(paths []string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			if rel, err := filepath.Rel(a.root, p); err == nil && !isOutside(rel) {
				out[filepath.ToSlash(rel)] = struct{}{}
				continue
			}
		}
		out[filepath.ToSlash(p)] = struct{}{}
	}
	return out
}

// absolutize resolves caller-supplied paths (absolute or root-relative)
// to absolute form for identity comparison against node paths.
func (a *Assembler) absolutize(paths []string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			out[filepath.Clean(p)] = struct{}{}
			continue
		}
		out[filepath.Join(a.root, p)] = struct{}{}
	}
	return out
}

func isOutside(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
