package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// loadConcurrency bounds the number of file reads in flight per build.
const loadConcurrency = 16

// Builder performs full graph rebuilds over a storage provider.
type Builder struct {
	store   storage.Provider
	include []string
	exclude []string
	logger  *slog.Logger
}

// NewBuilder creates a Builder discovering seed files with the given
// include and exclude glob sets.
func NewBuilder(store storage.Provider, include, exclude []string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, include: include, exclude: exclude, logger: logger}
}

// Build discovers the seed file set, loads it, and iteratively resolves
// links until no unvisited target remains. Per-document failures degrade
// to error placeholder nodes; only discovery itself can fail the build.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	seeds, err := b.store.Find(b.include, b.exclude)
	if err != nil {
		return nil, fmt.Errorf("graph: discover: %w", err)
	}

	ld := &loader{
		store:  b.store,
		logger: b.logger,
		nodes:  make(map[string]*DocumentNode),
	}
	ld.getNodes(ctx, seeds)

	// Frontier loop: a path is scanned for outbound links exactly once,
	// which makes cycles harmless. Every link target is loaded whether
	// or not it embeds; embedding and graph membership are independent.
	processed := make(map[string]struct{})
	frontier := dedupe(seeds)
	rounds := 0
	for len(frontier) > 0 {
		rounds++
		queued := make(map[string]struct{})
		var next []string
		for _, path := range frontier {
			if _, done := processed[path]; done {
				continue
			}
			processed[path] = struct{}{}

			node := ld.get(ctx, path)
			if node.Failed() {
				continue
			}
			for _, l := range node.Links {
				if _, done := processed[l.TargetPath]; done {
					continue
				}
				if _, q := queued[l.TargetPath]; q {
					continue
				}
				queued[l.TargetPath] = struct{}{}
				next = append(next, l.TargetPath)
			}
		}
		ld.getNodes(ctx, next)
		frontier = next
	}

	ix := &Index{nodes: ld.nodes}
	failed := 0
	for _, n := range ld.nodes {
		if n.Failed() {
			failed++
		}
	}
	b.logger.Info("graph: build complete",
		slog.Int("nodes", ix.Len()),
		slog.Int("seeds", len(seeds)),
		slog.Int("failed", failed),
		slog.Int("rounds", rounds))
	return ix, nil
}

// loader owns the per-build mutable state: the node table and the
// pending-load registry. Both are discarded with the build.
type loader struct {
	store  storage.Provider
	logger *slog.Logger

	mu    sync.Mutex
	nodes map[string]*DocumentNode

	flight singleflight.Group
}

// get returns the node for path, loading it at most once. Concurrent
// calls for the same not-yet-loaded path share a single underlying
// read and parse.
func (ld *loader) get(ctx context.Context, path string) *DocumentNode {
	ld.mu.Lock()
	if n, ok := ld.nodes[path]; ok {
		ld.mu.Unlock()
		return n
	}
	ld.mu.Unlock()

	v, _, _ := ld.flight.Do(path, func() (any, error) {
		n := ld.load(ctx, path)
		// The node is visible in the table before the in-flight handle
		// clears, so later callers hit the cache.
		ld.mu.Lock()
		ld.nodes[path] = n
		ld.mu.Unlock()
		return n, nil
	})
	return v.(*DocumentNode)
}

// getNodes fetches the deduplicated paths concurrently. Result order
// matches the deduplicated input, but callers must not depend on it.
func (ld *loader) getNodes(ctx context.Context, paths []string) []*DocumentNode {
	paths = dedupe(paths)
	out := make([]*DocumentNode, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			out[i] = ld.get(gctx, p)
			return nil
		})
	}
	_ = g.Wait() // loads never return errors; failures become placeholders
	return out
}

// load reads and parses one document. Any failure yields an error
// placeholder so traversal can proceed past it.
func (ld *loader) load(_ context.Context, path string) *DocumentNode {
	isMD := IsMarkdownPath(path)

	data, err := ld.store.Read(path)
	if err != nil {
		ld.logger.Warn("graph: document unreadable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return &DocumentNode{
			Path:       path,
			IsMarkdown: isMD,
			LoadErr:    &NodeError{Reason: fmt.Sprintf("%v: %v", apperr.ErrLoad, err)},
		}
	}

	if !isMD {
		return &DocumentNode{Path: path, Raw: string(data)}
	}

	res, err := parser.Parse(path, data)
	if err != nil {
		ld.logger.Warn("graph: front matter invalid",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return &DocumentNode{
			Path:       path,
			Raw:        string(data),
			IsMarkdown: true,
			LoadErr:    &NodeError{Reason: err.Error()},
		}
	}

	return &DocumentNode{
		Path:       path,
		Raw:        res.Body,
		Meta:       res.Meta,
		Links:      links.Extract(path, res.Body, ld.logger),
		IsMarkdown: true,
	}
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
