package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/assemble"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
)

func testServer(t *testing.T, docs map[string]string) *Server {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range docs {
		abs := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	builder := graph.NewBuilder(store, []string{"**/*.md"}, nil, logger)
	asm := assemble.New(store.Root(), true, logger)
	renderer := render.New(store.Rel, logger)
	svc := api.NewService(store, builder, asm, renderer, logger)

	return New(svc)
}

func callReq(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestGetContext_Tool(t *testing.T) {
	srv := testServer(t, map[string]string{
		"base.md": "---\nalwaysApply: true\n---\nbase rules\n",
	})

	res, err := srv.getContext(context.Background(), callReq("get_context", nil))
	if err != nil {
		t.Fatalf("getContext: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, `reason="always"`) || !strings.Contains(text, "base rules") {
		t.Errorf("context = %q", text)
	}
}

func TestGetContext_Tool_AttachedList(t *testing.T) {
	srv := testServer(t, map[string]string{
		"ts.md": "---\nglobs: \"**/*.ts\"\n---\nts rules\n",
		"go.md": "---\nglobs: \"**/*.go\"\n---\ngo rules\n",
	})

	res, err := srv.getContext(context.Background(), callReq("get_context", map[string]interface{}{
		"attached": "src/a.ts, src/b.go",
	}))
	if err != nil {
		t.Fatalf("getContext: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "ts rules") || !strings.Contains(text, "go rules") {
		t.Errorf("context = %q", text)
	}
}

func TestGetContext_Tool_Empty(t *testing.T) {
	srv := testServer(t, map[string]string{
		"plain.md": "nothing to trigger\n",
	})

	res, err := srv.getContext(context.Background(), callReq("get_context", nil))
	if err != nil {
		t.Fatalf("getContext: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "no matching context") {
		t.Errorf("text = %q", text)
	}
}

func TestListDocuments_Tool(t *testing.T) {
	srv := testServer(t, map[string]string{
		"a.md": "---\ndescription: Alpha doc\n---\nbody\n",
	})

	res, err := srv.listDocuments(context.Background(), callReq("list_documents", nil))
	if err != nil {
		t.Fatalf("listDocuments: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "a.md") || !strings.Contains(text, "Alpha doc") {
		t.Errorf("listing = %q", text)
	}
}

func TestReadDocument_Tool(t *testing.T) {
	srv := testServer(t, map[string]string{
		"a.md": "---\ndescription: Alpha\n---\nthe body\n",
	})

	res, err := srv.readDocument(context.Background(), callReq("read_document", map[string]interface{}{
		"path": "a.md",
	}))
	if err != nil {
		t.Fatalf("readDocument: %v", err)
	}
	if text := resultText(t, res); text != "the body\n" {
		t.Errorf("body = %q", text)
	}

	res, err = srv.readDocument(context.Background(), callReq("read_document", map[string]interface{}{
		"path": "missing.md",
	}))
	if err != nil {
		t.Fatalf("readDocument: %v", err)
	}
	if !res.IsError {
		t.Error("missing document should be a tool error")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a.ts , b.go ,, ")
	if len(got) != 2 || got[0] != "a.ts" || got[1] != "b.go" {
		t.Errorf("splitList = %v", got)
	}
	if splitList("") != nil {
		t.Error("empty input should yield nil")
	}
}
