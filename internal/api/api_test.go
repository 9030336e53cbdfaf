package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/assemble"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
)

// testEnv sets up a temp docs tree, service, and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string, docs map[string]string) (*Service, http.Handler) {
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
		t.Fatalf("NewFS: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	builder := graph.NewBuilder(store, []string{"**/*.md"}, nil, logger)
	asm := assemble.New(store.Root(), false, logger)
	renderer := render.New(store.Rel, logger)
	svc := NewService(store, builder, asm, renderer, logger)

	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetContext_JSON(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"rules/base.md": "---\nalwaysApply: true\n---\nbase rules [extra](./extra.md?link=true)\n",
		"rules/extra.md": "extra notes\n",
	})

	w := get(t, router, "/context")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ContextResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %+v, want 2", resp.Items)
	}
	if resp.Items[0].Path != "rules/base.md" || resp.Items[0].Reason != "always" {
		t.Errorf("first item = %+v", resp.Items[0])
	}
	if resp.Items[1].Reason != "related" || resp.Items[1].LinkedFrom != "rules/base.md" {
		t.Errorf("second item = %+v", resp.Items[1])
	}
}

func TestGetContext_Text(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"base.md": "---\nalwaysApply: true\n---\nbase body\n",
	})

	w := get(t, router, "/context?format=text")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if body == "" || body[0] != '<' {
		t.Errorf("expected rendered text, got %q", body)
	}
}

func TestGetContext_AttachedParams(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"ts.md": "---\nglobs: \"**/*.ts\"\n---\nts rules\n",
	})

	w := get(t, router, "/context?attached=src/main.ts")
	var resp ContextResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Reason != "auto" {
		t.Fatalf("items = %+v, want one auto item", resp.Items)
	}

	w = get(t, router, "/context?attached=src/main.py")
	resp = ContextResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Fatalf("items = %+v, want none", resp.Items)
	}
}

func TestListDocuments(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"a.md": "---\ndescription: Alpha\n---\nbody\n",
		"b.md": "body\n",
	})

	w := get(t, router, "/documents")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var docs []DocumentInfo
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[0].Path != "a.md" || docs[0].Description != "Alpha" {
		t.Errorf("first doc = %+v", docs[0])
	}
	if docs[0].Checksum == "" {
		t.Error("checksum missing")
	}
}

func TestGetDocument(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"sub/a.md": "---\ndescription: Alpha\n---\nthe body\n",
	})

	w := get(t, router, "/documents/sub/a.md")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail DocumentDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if detail.Content != "the body\n" || !detail.Markdown {
		t.Errorf("detail = %+v", detail)
	}

	w = get(t, router, "/documents/nope.md")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing doc status = %d, want 404", w.Code)
	}
}

func TestGetGraph(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"a.md": "[b](./b.md?link=true)\n",
		"b.md": "leaf\n",
	})

	w := get(t, router, "/graph")
	var view GraphView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(view.Nodes) != 2 || len(view.Edges) != 1 {
		t.Fatalf("view = %+v", view)
	}
	if view.Edges[0].From != "a.md" || view.Edges[0].To != "b.md" {
		t.Errorf("edge = %+v", view.Edges[0])
	}
}

func TestRebuildEndpoint(t *testing.T) {
	svc, router := testEnv(t, "", map[string]string{
		"a.md": "body\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.Index() == nil || svc.Index().Len() != 1 {
		t.Error("rebuild should populate the index")
	}
}

func TestAuth_Enforced(t *testing.T) {
	_, router := testEnv(t, "sekrit", map[string]string{"a.md": "x\n"})

	w := get(t, router, "/documents")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", rec.Code)
	}
}
