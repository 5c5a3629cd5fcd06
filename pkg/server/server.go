// Package server exposes the ingestion and retrieval pipeline over
// HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/opencampus/sage/pkg/extract"
	"github.com/opencampus/sage/pkg/generation"
	"github.com/opencampus/sage/pkg/index"
	"github.com/opencampus/sage/pkg/rag"
	"github.com/opencampus/sage/pkg/registry"
)

// Server handles the admin and RAG routes.
type Server struct {
	pipeline  *rag.Pipeline
	registry  *registry.Registry
	extractor *extract.Registry
	uploadDir string
}

// New creates a new Server. Uploaded documents are stored under
// uploadDir; the extractor decides which file types are accepted.
func New(pipeline *rag.Pipeline, reg *registry.Registry, uploadDir string) *Server {
	return &Server{
		pipeline:  pipeline,
		registry:  reg,
		extractor: extract.Default(),
		uploadDir: uploadDir,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/upload_and_cluster", s.handleUploadAndCluster)
	mux.HandleFunc("GET /rag/list_clusters", s.handleListClusters)
	mux.HandleFunc("GET /rag/view_pdf", s.handleViewPDF)
	mux.HandleFunc("POST /rag/chunks", s.handleChunks)
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request handled",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// errorKind maps pipeline errors onto the wire-level error taxonomy.
func errorKind(err error) (kind string, status int) {
	switch {
	case errors.Is(err, registry.ErrClusterNotFound):
		return "cluster_not_found", http.StatusNotFound
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "unsupported_format", http.StatusBadRequest
	case errors.Is(err, registry.ErrInvalidSourcePath):
		return "invalid_input", http.StatusBadRequest
	case errors.Is(err, generation.ErrUpstreamUnavailable),
		errors.Is(err, index.ErrEmbedderUnavailable):
		return "upstream_unavailable", http.StatusBadGateway
	default:
		return "storage_error", http.StatusInternalServerError
	}
}
