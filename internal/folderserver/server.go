// Package folderserver implements the remote folder API against a storage
// backend. It is used for local development and end-to-end tests of the
// client.
package folderserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sharingconfigs/sharingconfigs/internal/logging"
	"github.com/sharingconfigs/sharingconfigs/internal/metrics"
	"github.com/sharingconfigs/sharingconfigs/internal/storage"
	"github.com/sharingconfigs/sharingconfigs/pkg/client"
	"github.com/sharingconfigs/sharingconfigs/pkg/models"
	"github.com/sharingconfigs/sharingconfigs/pkg/protocol"
)

const maxExportSize = 10 << 20

// Config configures a Server.
type Config struct {
	Label      string
	Token      string
	AuthScheme string
	// PublicURL is the base of download links. When empty, links are built
	// from the request host.
	PublicURL string
	Folders   []Folder
	Storage   storage.Backend
}

// Server serves one labelled folder tree.
type Server struct {
	cfg      Config
	nodes    []models.FolderNode
	writable map[string]bool

	// exportMu serializes the exists check and write of exports.
	exportMu sync.Mutex

	mu        sync.Mutex
	tokens    map[string]string // download token -> storage key
	keyTokens map[string]string // storage key -> download token
}

// New creates a server for cfg.Folders.
func New(cfg Config) (*Server, error) {
	if cfg.Label == "" || cfg.Token == "" {
		return nil, fmt.Errorf("label and token are required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = client.DefaultAuthScheme
	}
	writable := make(map[string]bool)
	if err := index(cfg.Folders, writable); err != nil {
		return nil, fmt.Errorf("invalid folder tree: %w", err)
	}
	return &Server{
		cfg:       cfg,
		nodes:     toNodes(cfg.Folders),
		writable:  writable,
		tokens:    make(map[string]string),
		keyTokens: make(map[string]string),
	}, nil
}

// Init publishes the number of stored files.
func (s *Server) Init(ctx context.Context) error {
	keys, err := s.cfg.Storage.ListObjects(ctx, s.cfg.Label+"/")
	if err != nil {
		return fmt.Errorf("list stored files: %w", err)
	}
	metrics.SetStoredFiles(len(keys))
	logging.Info("folder server ready",
		zap.String("label", s.cfg.Label),
		zap.Int("folders", len(s.writable)),
		zap.Int("files", len(keys)),
		zap.String("storage", s.cfg.Storage.Type()),
	)
	return nil
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(observe))

	r.Get("/health", s.handleHealth)
	r.Get("/download/{token}/", s.handleDownload)

	r.Route("/{label}/folder", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/", s.handleListFolders)
		r.Get("/{folder}/files/", s.handleListFiles)
		r.Post("/{folder}/files/", s.handleExport)
		r.Get("/{folder}/files/{filename}/", s.handleImport)
	})

	return r
}

func observe(r *http.Request, status int, duration time.Duration) {
	route := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			route = p
		}
	}
	metrics.RecordHTTPRequest(r.Method, route, status, duration)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := s.cfg.AuthScheme + " " + s.cfg.Token
		if r.Header.Get("Authorization") != want {
			s.sendError(w, http.StatusUnauthorized, "Invalid token.")
			return
		}
		if chi.URLParam(r, "label") != s.cfg.Label {
			s.sendError(w, http.StatusNotFound, "Unknown label.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pathParam returns a decoded route parameter. chi matches on the raw path
// when the request carries escaped slashes.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func (s *Server) storageKey(folder, filename string) string {
	return s.cfg.Label + "/" + folder + "/" + filename
}

// downloadURL returns the public link for key, minting a token on first use.
func (s *Server) downloadURL(r *http.Request, key string) (string, error) {
	s.mu.Lock()
	token, ok := s.keyTokens[key]
	if !ok {
		token = uuid.NewString()
		s.keyTokens[key] = token
		s.tokens[token] = key
	}
	s.mu.Unlock()

	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return url.JoinPath(base, "download", token+"/")
}

func (s *Server) lookupToken(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.tokens[token]
	return key, ok
}

func (s *Server) refreshStoredFiles(ctx context.Context) {
	keys, err := s.cfg.Storage.ListObjects(ctx, s.cfg.Label+"/")
	if err != nil {
		logging.Warn("count stored files failed", zap.Error(err))
		return
	}
	metrics.SetStoredFiles(len(keys))
}

// validFilename rejects names that cannot be a single storage key segment.
func validFilename(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, protocol.ErrorResponse{Detail: message})
}
