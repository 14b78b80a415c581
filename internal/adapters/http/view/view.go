// Package view renders the dashboard page.
package view

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/domain/types"
	"github.com/mployhr/recruitdash/pkg/logger"
)

// Error constants
var (
	ErrRender = errors.New("dashboard render failed")
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Dependencies are the read models the page is drawn from.
type Dependencies interface {
	State() service.State
	KPICards() []types.KPICard
	Leaderboard() []types.Entry
	StarterCards() []types.StarterCard
}

// Handler serves the dashboard page and its fragments.
type Handler struct {
	deps   Dependencies
	tmpl   *template.Template
	logger logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for render failures.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler parses the embedded templates.
func NewHandler(deps Dependencies, opts ...Option) *Handler {
	h := &Handler{
		deps:   deps,
		tmpl:   template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches the page, fragment and asset routes to mux.
//
//	GET /          -> full page
//	GET /partial   -> content fragment for ?tab=
//	GET /static/*  -> embedded scripts and styles
func Register(_ context.Context, mux *http.ServeMux, h *Handler) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", h.HandlePage)
	mux.HandleFunc("/partial", h.HandlePartial)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(staticFiles())))
}

func staticFiles() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

// HandlePage handles GET / requests.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, "page")
}

// HandlePartial handles GET /partial requests.
func (h *Handler) HandlePartial(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "content")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	p := buildPage(h.deps, ParseTab(r.URL.Query().Get("tab")))

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		h.logger.Error(r.Context(), "rendering dashboard failed",
			logger.String("template", name), logger.Error(errors.Join(ErrRender, err)))
		http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
