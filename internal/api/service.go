package api

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/assemble"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
)

// Service coordinates graph builds and context assembly for every caller
// surface (HTTP, CLI, MCP). It owns the current index snapshot; a rebuild
// swaps the snapshot atomically and discards the old graph wholesale.
type Service struct {
	store    storage.Provider
	builder  *graph.Builder
	asm      *assemble.Assembler
	renderer *render.Renderer
	logger   *slog.Logger

	mu    sync.RWMutex
	index *graph.Index
}

// NewService creates a Service. The index starts empty; call Rebuild
// before assembling.
func NewService(store storage.Provider, builder *graph.Builder, asm *assemble.Assembler, renderer *render.Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		builder:  builder,
		asm:      asm,
		renderer: renderer,
		logger:   logger,
	}
}

// Rebuild performs a full graph rebuild and swaps in the new snapshot.
func (s *Service) Rebuild(ctx context.Context) error {
	ix, err := s.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("service: rebuild: %w", err)
	}
	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()
	return nil
}

// Index returns the current snapshot, or nil before the first build.
func (s *Service) Index() *graph.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// snapshot returns the current index, building one on first use.
func (s *Service) snapshot(ctx context.Context) (*graph.Index, error) {
	if ix := s.Index(); ix != nil {
		return ix, nil
	}
	if err := s.Rebuild(ctx); err != nil {
		return nil, err
	}
	return s.Index(), nil
}

// Context assembles the ordered context for the caller inputs against
// the current snapshot.
func (s *Service) Context(ctx context.Context, attached, agentSelected []string) ([]assemble.ContextItem, *graph.Index, error) {
	ix, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.asm.Assemble(ix, attached, agentSelected)
	if err != nil {
		return nil, nil, err
	}
	return items, ix, nil
}

// RenderedContext assembles and renders the context as prompt text.
func (s *Service) RenderedContext(ctx context.Context, attached, agentSelected []string) (string, error) {
	items, ix, err := s.Context(ctx, attached, agentSelected)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(items, ix), nil
}

// Documents lists every indexed document ordered by path.
func (s *Service) Documents(ctx context.Context) ([]DocumentInfo, error) {
	ix, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentInfo, 0, ix.Len())
	for _, n := range ix.Nodes() {
		info := DocumentInfo{
			Path:        s.store.Rel(n.Path),
			Markdown:    n.IsMarkdown,
			Checksum:    checksum.Sum([]byte(n.Raw)),
			Description: n.Meta.Description,
			Globs:       n.Meta.Globs,
			AlwaysApply: n.Meta.AlwaysApply,
			LinkCount:   len(n.Links),
		}
		if n.LoadErr != nil {
			info.Error = n.LoadErr.Reason
		}
		out = append(out, info)
	}
	return out, nil
}

// Document returns the node for a root-relative or absolute path.
func (s *Service) Document(ctx context.Context, path string) (*graph.DocumentNode, error) {
	ix, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.store.Root(), path)
	}
	n, ok := ix.Node(filepath.Clean(abs))
	if !ok {
		if s.store.Exists(abs) {
			return nil, fmt.Errorf("service: document %s exists but is not indexed: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("service: document %s: %w", path, apperr.ErrNotFound)
	}
	return n, nil
}

// Graph returns the node and edge lists for visualization.
func (s *Service) Graph(ctx context.Context) (*GraphView, error) {
	ix, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	view := &GraphView{
		Nodes: make([]GraphNode, 0, ix.Len()),
	}
	for _, n := range ix.Nodes() {
		view.Nodes = append(view.Nodes, GraphNode{
			Path:     s.store.Rel(n.Path),
			Markdown: n.IsMarkdown,
			Failed:   n.Failed(),
		})
		for _, l := range n.Links {
			view.Edges = append(view.Edges, GraphEdge{
				From:   s.store.Rel(n.Path),
				To:     s.store.Rel(l.TargetPath),
				Anchor: l.AnchorText,
				Embed:  l.Embed.String(),
			})
		}
	}
	return view, nil
}

// contextItems converts assembled items to their transport form.
func (s *Service) contextItems(items []assemble.ContextItem) []ContextItemView {
	out := make([]ContextItemView, 0, len(items))
	for _, it := range items {
		v := ContextItemView{
			Path:   s.store.Rel(it.Node.Path),
			Reason: it.Classification.String(),
		}
		if it.Classification == assemble.ClassRelated {
			v.LinkedFrom = s.store.Rel(it.LinkedFromPath)
			v.Anchor = it.LinkedViaAnchor
		}
		for _, l := range it.Node.Links {
			if l.Embed != links.EmbedNone {
				v.Embeds++
			}
		}
		out = append(out, v)
	}
	return out
}
