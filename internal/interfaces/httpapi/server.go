// Package httpapi is the settings surface: a JSON API over the watch service,
// and a client for it used by the CLI.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dex_watch/internal/domain"
)

const maxBody = 1 << 20 // 1MB

// Service is what the API needs from the watch service.
type Service interface {
	List(ctx context.Context) ([]domain.Item, error)
	AddItem(ctx context.Context, id string) (domain.Item, error)
	RemoveItem(ctx context.Context, id string) error
	ReplaceItems(ctx context.Context, items []domain.Item) ([]domain.Item, error)
	Quotes(ctx context.Context) (domain.QuoteMap, error)
	Rows(ctx context.Context) ([]domain.Row, error)
	WidgetEnabled(ctx context.Context) (bool, error)
	SetWidgetEnabled(ctx context.Context, enabled bool) error
	IconPath(id string) (string, error)
}

type itemsBody struct {
	Items []domain.Item `json:"items"`
}

type addBody struct {
	ID string `json:"id"`
}

type itemBody struct {
	Item domain.Item `json:"item"`
}

type quotesBody struct {
	Quotes domain.QuoteMap `json:"quotes"`
}

type rowsBody struct {
	Rows []domain.Row `json:"rows"`
}

type widgetBody struct {
	Enabled *bool `json:"enabled"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server routes settings requests to a Service.
type Server struct {
	svc Service
	mux *http.ServeMux
}

// NewServer creates the API with all settings routes registered.
func NewServer(svc Service) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /api/watchlist", s.handleList)
	s.mux.HandleFunc("POST /api/watchlist", s.handleAdd)
	s.mux.HandleFunc("PUT /api/watchlist", s.handleReplace)
	s.mux.HandleFunc("DELETE /api/watchlist/{id}", s.handleRemove)
	s.mux.HandleFunc("GET /api/quotes", s.handleQuotes)
	s.mux.HandleFunc("GET /api/rows", s.handleRows)
	s.mux.HandleFunc("GET /api/widget", s.handleGetWidget)
	s.mux.HandleFunc("PUT /api/widget", s.handleSetWidget)
	s.mux.HandleFunc("GET /api/items/{id}/icon", s.handleIcon)

	return s
}

// Handle mounts an extra handler, e.g. the overlay stream or metrics.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return recoverPanic(limitBody(s.mux))
}

// NewHTTPServer wraps h with the timeouts used for the settings listener.
// WriteTimeout is left unset because the overlay stream is long-lived.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsBody{Items: nonNil(items)})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var b addBody
	if err := decode(r, &b); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	item, err := s.svc.AddItem(r.Context(), b.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemBody{Item: item})
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var b itemsBody
	if err := decode(r, &b); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	items, err := s.svc.ReplaceItems(r.Context(), b.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsBody{Items: nonNil(items)})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveItem(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.svc.Quotes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotesBody{Quotes: quotes})
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Rows(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.Row{}
	}
	writeJSON(w, http.StatusOK, rowsBody{Rows: rows})
}

func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.svc.WidgetEnabled(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, widgetBody{Enabled: &enabled})
}

func (s *Server) handleSetWidget(w http.ResponseWriter, r *http.Request) {
	var b widgetBody
	if err := decode(r, &b); err != nil || b.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: `body must be {"enabled": bool}`})
		return
	}
	if err := s.svc.SetWidgetEnabled(r.Context(), *b.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	path, err := s.svc.IconPath(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "max-age=3600")
	http.ServeFile(w, r, path)
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsTransportFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Settings request failed", slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Warn("Response encode failed", slog.Any("error", err))
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func nonNil(items []domain.Item) []domain.Item {
	if items == nil {
		return []domain.Item{}
	}
	return items
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Settings handler panic recovered", slog.Any("panic", rec), slog.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
