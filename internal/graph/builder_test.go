package graph

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeDoc(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return abs
}

func buildOver(t *testing.T, root string, include []string) *Index {
	t.Helper()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	b := NewBuilder(store, include, nil, testLogger())
	ix, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func TestBuild_FollowsLinksBeyondSeeds(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "see [b](./sub/b.md?link=true)\n")
	bPath := writeDoc(t, root, "sub/b.md", "leaf\n")

	// Only a.md is discoverable; b.md must enter the graph via the link.
	ix := buildOver(t, root, []string{"a.md"})

	if ix.Len() != 2 {
		t.Fatalf("index size = %d, want 2 (%v)", ix.Len(), ix.Paths())
	}
	n, ok := ix.Node(bPath)
	if !ok {
		t.Fatal("linked document missing from index")
	}
	if n.Failed() {
		t.Errorf("linked document should load cleanly: %v", n.LoadErr)
	}
}

func TestBuild_CycleTerminates(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "[to b](./b.md?link=true)\n")
	writeDoc(t, root, "b.md", "[back to a](./a.md?link=true)\n")

	ix := buildOver(t, root, []string{"a.md"})
	if ix.Len() != 2 {
		t.Fatalf("index size = %d, want 2", ix.Len())
	}
}

func TestBuild_MissingTargetBecomesPlaceholder(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "[gone](./missing.md?link=true)\n")

	ix := buildOver(t, root, []string{"**/*.md"})

	n, ok := ix.Node(filepath.Join(root, "missing.md"))
	if !ok {
		t.Fatal("missing target should still occupy the graph")
	}
	if !n.Failed() {
		t.Fatal("missing target should be an error placeholder")
	}
	if !strings.Contains(n.LoadErr.Reason, "load failed") {
		t.Errorf("reason = %q", n.LoadErr.Reason)
	}
	if !n.IsMarkdown {
		t.Error("isMarkdown should still derive from the suffix")
	}
}

func TestBuild_InvalidFrontmatterKeepsContent(t *testing.T) {
	root := t.TempDir()
	raw := "---\n: bad: yaml: {{{\n---\nbody\n"
	p := writeDoc(t, root, "bad.md", raw)

	ix := buildOver(t, root, []string{"**/*.md"})

	n, ok := ix.Node(p)
	if !ok {
		t.Fatal("node missing")
	}
	if !n.Failed() {
		t.Fatal("invalid front matter should mark the node failed")
	}
	if n.Raw != raw {
		t.Errorf("content should be retained, got %q", n.Raw)
	}
	if len(n.Links) != 0 {
		t.Errorf("error placeholders must carry no links, got %v", n.Links)
	}
}

func TestBuild_NonMarkdownTargetHasNoLinks(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "[cfg](./settings.json?embed=true)\n")
	writeDoc(t, root, "settings.json", `{"x": "[y](./z.md?link=true)"}`)

	ix := buildOver(t, root, []string{"**/*.md"})

	n, ok := ix.Node(filepath.Join(root, "settings.json"))
	if !ok {
		t.Fatal("embedded non-markdown target missing from index")
	}
	if n.IsMarkdown {
		t.Error("settings.json is not markdown")
	}
	if len(n.Links) != 0 {
		t.Errorf("non-markdown nodes carry no links, got %v", n.Links)
	}
	// The link inside the JSON body must not have been followed.
	if _, ok := ix.Node(filepath.Join(root, "z.md")); ok {
		t.Error("links inside non-markdown content must not be traversed")
	}
}

func TestBuild_EmbedOnlyLinksStillTraversed(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "[snippet](./b.md?embed=1-2)\n")
	writeDoc(t, root, "b.md", "one\ntwo\nthree\n")

	ix := buildOver(t, root, []string{"a.md"})
	if _, ok := ix.Node(filepath.Join(root, "b.md")); !ok {
		t.Fatal("embed links participate in graph discovery")
	}
}

// countingStore wraps reads with a counter and artificial latency so
// concurrent loads of the same path would overlap without deduplication.
type countingStore struct {
	content map[string][]byte
	reads   atomic.Int64
}

func (c *countingStore) Find(_, _ []string) ([]string, error) { return nil, nil }
func (c *countingStore) Root() string                         { return "/docs" }
func (c *countingStore) Rel(p string) string                  { return p }
func (c *countingStore) Exists(p string) bool                 { _, ok := c.content[p]; return ok }

func (c *countingStore) Read(p string) ([]byte, error) {
	c.reads.Add(1)
	time.Sleep(20 * time.Millisecond)
	if data, ok := c.content[p]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func TestLoader_ConcurrentGetReadsOnce(t *testing.T) {
	store := &countingStore{content: map[string][]byte{
		"/docs/shared.md": []byte("shared\n"),
	}}
	ld := &loader{store: store, logger: testLogger(), nodes: make(map[string]*DocumentNode)}

	const callers = 16
	results := make([]*DocumentNode, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = ld.get(context.Background(), "/docs/shared.md")
		}()
	}
	wg.Wait()

	if got := store.reads.Load(); got != 1 {
		t.Fatalf("reads = %d, want 1", got)
	}
	for i, n := range results {
		if n != results[0] {
			t.Fatalf("caller %d got a different node instance", i)
		}
	}
}

func TestIsMarkdownPath(t *testing.T) {
	for _, p := range []string{"a.md", "A.MD", "rules/api.mdc"} {
		if !IsMarkdownPath(p) {
			t.Errorf("%q should be markdown", p)
		}
	}
	for _, p := range []string{"a.json", "readme.txt", "md"} {
		if IsMarkdownPath(p) {
			t.Errorf("%q should not be markdown", p)
		}
	}
}
