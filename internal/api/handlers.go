package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
)

// Handler exposes the Service over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetContext handles GET /api/context.
//
// Query parameters: attached (repeatable) — files the user has open;
// agent (repeatable) — documents an agent selected by description;
// format — "json" (default) for the item list, "text" for the rendered
// prompt block.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	attached := q["attached"]
	agent := q["agent"]

	if q.Get("format") == "text" {
		text, err := h.svc.RenderedContext(r.Context(), attached, agent)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(text))
		return
	}

	items, _, err := h.svc.Context(r.Context(), attached, agent)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ContextResponse{Items: h.svc.contextItems(items)})
}

// ListDocuments handles GET /api/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument handles GET /api/documents/*.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path required"))
		return
	}
	n, err := h.svc.Document(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("document not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	detail := DocumentDetail{
		Path:        path,
		Markdown:    n.IsMarkdown,
		Content:     n.Raw,
		Description: n.Meta.Description,
		Globs:       n.Meta.Globs,
		AlwaysApply: n.Meta.AlwaysApply,
	}
	if n.LoadErr != nil {
		detail.Error = n.LoadErr.Reason
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetGraph handles GET /api/graph.
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Graph(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Rebuild handles POST /api/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Rebuild(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"nodes": h.svc.Index().Len()})
}
