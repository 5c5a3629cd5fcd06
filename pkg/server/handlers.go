package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

const maxUploadBytes = 64 << 20

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind, status := errorKind(err)
	slog.Error("request failed", "kind", kind, "error", err)
	writeJSON(w, status, map[string]errorBody{
		"error": {Kind: kind, Message: err.Error()},
	})
}

func writeBadRequest(w http.ResponseWriter, kind, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]errorBody{
		"error": {Kind: kind, Message: message},
	})
}

// handleUploadAndCluster accepts a multipart document upload, stores
// it, registers a cluster over it and ingests it in one flow.
func (s *Server) handleUploadAndCluster(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "invalid_input", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		writeBadRequest(w, "invalid_input", "upload has no usable filename")
		return
	}
	if !s.extractor.Supported(filename) {
		writeBadRequest(w, "invalid_input", "invalid file type, please upload a PDF or TXT file")
		return
	}

	path, err := s.saveUpload(file, filename)
	if err != nil {
		writeError(w, err)
		return
	}

	cluster, err := s.registry.Create(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.pipeline.Ingest(r.Context(), cluster.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Textbook uploaded and cluster created successfully.",
		"file_path":  path,
		"cluster_id": cluster.ID,
	})
}

func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(s.uploadDir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

type clusterSummary struct {
	ClusterID string `json:"cluster_id"`
	Path      string `json:"path"`
}

func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.registry.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]clusterSummary, len(clusters))
	for i, c := range clusters {
		out[i] = clusterSummary{ClusterID: c.ID, Path: c.SourcePath}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleViewPDF(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("cluster_id")
	if id == "" {
		writeBadRequest(w, "invalid_input", "cluster_id query parameter is required")
		return
	}

	cluster, err := s.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := os.Stat(cluster.SourcePath); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]errorBody{
			"error": {Kind: "invalid_input", Message: "file not found on disk"},
		})
		return
	}

	http.ServeFile(w, r, cluster.SourcePath)
}

type chunksRequest struct {
	ClusterID string `json:"cluster_id"`
	Prompt    string `json:"prompt"`
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	var req chunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_input", "request body must be JSON with cluster_id and prompt")
		return
	}
	if req.ClusterID == "" || req.Prompt == "" {
		writeBadRequest(w, "invalid_input", "cluster_id and prompt are required")
		return
	}

	answer, err := s.pipeline.Answer(r.Context(), req.ClusterID, req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":          answer.Prompt,
		"response":        answer.Response,
		"relevant_chunks": answer.RelevantChunks,
	})
}
