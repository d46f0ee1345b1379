// Package devserver is a local backend speaking the HTTP surface the external
// and remote-api providers consume. It serves window documents from memory
// or a directory and keeps uploaded records in memory.
package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/logging"
	"github.com/red1oon/ADUI/pkg/schema"
)

// ReferencesFile is the directory entry holding external reference lists as
// {"REFERENCE_ID": [values...]}.
const ReferencesFile = "references.json"

// Server holds the documents served over HTTP.
type Server struct {
	mu         sync.RWMutex
	windows    map[string]map[string]any
	references map[string][]schema.ReferenceValue
	records    map[string][]map[string]any

	healthy atomic.Bool
	hitsMu  sync.Mutex
	hits    map[string]int

	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a structured logger for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs an empty, healthy server.
func New(opts ...Option) *Server {
	s := &Server{
		windows:    make(map[string]map[string]any),
		references: make(map[string][]schema.ReferenceValue),
		records:    make(map[string][]map[string]any),
		hits:       make(map[string]int),
		logger:     logging.Nop(),
	}
	s.healthy.Store(true)
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddWindow registers an external-shape window document and returns its id.
func (s *Server) AddWindow(raw []byte) (string, error) {
	payload, err := adapter.ParseDocument(raw)
	if err != nil {
		return "", fmt.Errorf("devserver: %w", err)
	}
	id, _ := adapter.ResolveWindowID(payload)
	if id == "" {
		return "", fmt.Errorf("devserver: window document has no id or name")
	}
	s.mu.Lock()
	s.windows[id] = payload
	s.mu.Unlock()
	return id, nil
}

// SetReference registers an externally keyed reference list.
func (s *Server) SetReference(id string, values []schema.ReferenceValue) {
	s.mu.Lock()
	s.references[id] = append([]schema.ReferenceValue(nil), values...)
	s.mu.Unlock()
}

// LoadDir adds every *.json window document in dir. references.json, when
// present, supplies reference lists instead.
func (s *Server) LoadDir(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("devserver: scan %s: %w", dir, err)
	}
	sort.Strings(matches)
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("devserver: read %s: %w", path, err)
		}
		if filepath.Base(path) == ReferencesFile {
			var refs map[string][]schema.ReferenceValue
			if err := json.Unmarshal(raw, &refs); err != nil {
				return fmt.Errorf("devserver: decode %s: %w", path, err)
			}
			for id, values := range refs {
				s.SetReference(id, values)
			}
			continue
		}
		if _, err := s.AddWindow(raw); err != nil {
			return fmt.Errorf("devserver: %s: %w", path, err)
		}
	}
	return nil
}

// SetHealthy toggles the /health endpoint between 200 and 503.
func (s *Server) SetHealthy(healthy bool) {
	s.healthy.Store(healthy)
}

// Hits returns how many requests reached the route pattern, e.g.
// "GET /windows/{windowID}".
func (s *Server) Hits(route string) int {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	return s.hits[route]
}

// Records returns the raw records uploaded for a window.
func (s *Server) Records(windowID string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]map[string]any(nil), s.records[windowID]...)
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Group(func(r chi.Router) {
		s.routes(r, false)
	})
	r.Route("/api/v1", func(r chi.Router) {
		s.routes(r, true)
	})
	return r
}

func (s *Server) routes(r chi.Router, pascal bool) {
	r.Get("/health", s.handleHealth)
	r.Get("/windows", func(w http.ResponseWriter, r *http.Request) {
		s.handleWindows(w, r, pascal)
	})
	r.Get("/windows/{windowID}", func(w http.ResponseWriter, r *http.Request) {
		s.handleWindow(w, r, pascal)
	})
	r.Get("/references/{referenceID}", func(w http.ResponseWriter, r *http.Request) {
		s.handleReference(w, r, pascal)
	})
	r.Post("/windows/{windowID}/records", s.handleRecord)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		_ = srv.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = strings.TrimPrefix(rctx.RoutePattern(), "/api/v1")
		}
		s.hitsMu.Lock()
		s.hits[r.Method+" "+route]++
		s.hitsMu.Unlock()

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.healthy.Load() {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "backend is unhealthy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWindows(w http.ResponseWriter, _ *http.Request, pascal bool) {
	s.mu.RLock()
	summaries := make([]schema.WindowSummary, 0, len(s.windows))
	for id, payload := range s.windows {
		name, _ := payload["name"].(string)
		description, _ := payload["description"].(string)
		windowType, _ := payload["windowType"].(string)
		summaries = append(summaries, schema.WindowSummary{ID: id, Name: name, Description: description, WindowType: windowType})
	}
	s.mu.RUnlock()
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	if pascal {
		list := make([]any, 0, len(summaries))
		for _, summary := range summaries {
			list = append(list, map[string]any{"Id": summary.ID, "Name": summary.Name, "Description": summary.Description})
		}
		writeJSON(w, http.StatusOK, map[string]any{"Windows": list})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": summaries})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request, pascal bool) {
	id := chi.URLParam(r, "windowID")
	s.mu.RLock()
	payload, ok := s.windows[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "window not found: "+id)
		return
	}
	if pascal {
		writeJSON(w, http.StatusOK, adapter.PascalizeKeys(payload))
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request, pascal bool) {
	id := chi.URLParam(r, "referenceID")
	s.mu.RLock()
	values, ok := s.references[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "reference not found: "+id)
		return
	}
	if pascal {
		list := make([]any, 0, len(values))
		for _, value := range values {
			list = append(list, map[string]any{
				"Key":         value.Key,
				"Value":       value.Value,
				"Description": value.Description,
				"Color":       value.Color,
				"Icon":        value.Icon,
				"SortOrder":   value.SortOrder,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"Values": list})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": values})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "windowID")
	s.mu.RLock()
	_, ok := s.windows[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "window not found: "+id)
		return
	}

	var record map[string]any
	if err := decodeJSON(r, &record); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	s.mu.Lock()
	s.records[id] = append(s.records[id], record)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, record)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
