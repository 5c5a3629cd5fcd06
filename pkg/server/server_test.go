package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencampus/sage/pkg/chunk"
	"github.com/opencampus/sage/pkg/index"
	"github.com/opencampus/sage/pkg/index/inmemory"
	"github.com/opencampus/sage/pkg/rag"
	"github.com/opencampus/sage/pkg/registry"
	regmem "github.com/opencampus/sage/pkg/registry/inmemory"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), float32(strings.Count(text, "e")), 1}
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding api down")
}

type fixedGenerator struct{}

func (fixedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "generated response", nil
}

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	splitter, err := chunk.New(20, 5)
	if err != nil {
		t.Fatal(err)
	}

	reg := registry.New(regmem.New())
	ix := index.New(fixedEmbedder{}, inmemory.New())
	pipeline := rag.New(reg, ix, fixedGenerator{}, rag.WithSplitter(splitter))

	srv := httptest.NewServer(New(pipeline, reg, filepath.Join(t.TempDir(), "uploads")).Handler())
	t.Cleanup(srv.Close)
	return srv, reg
}

func uploadFile(t *testing.T, url, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(url+"/admin/upload_and_cluster", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestUploadAndCluster(t *testing.T) {
	srv, reg := newTestServer(t)

	resp := uploadFile(t, srv.URL, "biology.txt", "mitochondria are the powerhouse of the cell")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Message   string `json:"message"`
		FilePath  string `json:"file_path"`
		ClusterID string `json:"cluster_id"`
	}
	decode(t, resp.Body, &body)

	if body.ClusterID == "" {
		t.Error("response must carry the new cluster id")
	}
	if body.Message == "" {
		t.Error("response must carry a message")
	}
	if _, err := os.Stat(body.FilePath); err != nil {
		t.Errorf("uploaded file not stored at %s: %v", body.FilePath, err)
	}
	if _, err := reg.Get(context.Background(), body.ClusterID); err != nil {
		t.Errorf("cluster not registered: %v", err)
	}
}

func TestUploadAndCluster_RejectsDisallowedExtension(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := uploadFile(t, srv.URL, "malware.exe", "nope")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	decode(t, resp.Body, &body)
	if body.Error.Kind != "invalid_input" {
		t.Errorf("error kind = %q, want invalid_input", body.Error.Kind)
	}
}

func TestListClusters(t *testing.T) {
	srv, _ := newTestServer(t)
	uploadFile(t, srv.URL, "chemistry.txt", "atoms bond to form molecules in predictable ways")

	resp, err := http.Get(srv.URL + "/rag/list_clusters")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var clusters []struct {
		ClusterID string `json:"cluster_id"`
		Path      string `json:"path"`
	}
	decode(t, resp.Body, &clusters)

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].ClusterID == "" || clusters[0].Path == "" {
		t.Errorf("cluster summary incomplete: %+v", clusters[0])
	}
}

func TestChunks(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := uploadFile(t, srv.URL, "physics.txt", "energy is conserved in every closed system we observe")
	var uploaded struct {
		ClusterID string `json:"cluster_id"`
	}
	decode(t, resp.Body, &uploaded)

	reqBody, _ := json.Marshal(map[string]string{
		"cluster_id": uploaded.ClusterID,
		"prompt":     "what is conserved?",
	})
	chunksResp, err := http.Post(srv.URL+"/rag/chunks", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer chunksResp.Body.Close()

	if chunksResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", chunksResp.StatusCode)
	}

	var body struct {
		Prompt         string   `json:"prompt"`
		Response       string   `json:"response"`
		RelevantChunks []string `json:"relevant_chunks"`
	}
	decode(t, chunksResp.Body, &body)

	if body.Prompt != "what is conserved?" {
		t.Errorf("prompt = %q", body.Prompt)
	}
	if body.Response != "generated response" {
		t.Errorf("response = %q", body.Response)
	}
	if len(body.RelevantChunks) == 0 {
		t.Error("expected relevant chunks from the ingested document")
	}
}

func TestChunks_UnknownCluster(t *testing.T) {
	srv, _ := newTestServer(t)

	reqBody, _ := json.Marshal(map[string]string{
		"cluster_id": "nonexistent-id",
		"prompt":     "hello",
	})
	resp, err := http.Post(srv.URL+"/rag/chunks", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	decode(t, resp.Body, &body)
	if body.Error.Kind != "cluster_not_found" {
		t.Errorf("error kind = %q, want cluster_not_found", body.Error.Kind)
	}
}

func TestChunks_EmbedderOutageIsUpstreamUnavailable(t *testing.T) {
	reg := registry.New(regmem.New())
	ix := index.New(failingEmbedder{}, inmemory.New())
	pipeline := rag.New(reg, ix, fixedGenerator{})
	srv := httptest.NewServer(New(pipeline, reg, t.TempDir()).Handler())
	t.Cleanup(srv.Close)

	// Register a cluster without going through upload, which would hit
	// the embedder during ingestion.
	src := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(src, []byte("some document body"), 0o644); err != nil {
		t.Fatal(err)
	}
	cluster, err := reg.Create(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	reqBody, _ := json.Marshal(map[string]string{
		"cluster_id": cluster.ID,
		"prompt":     "anything",
	})
	resp, err := http.Post(srv.URL+"/rag/chunks", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	decode(t, resp.Body, &body)
	if body.Error.Kind != "upstream_unavailable" {
		t.Errorf("error kind = %q, want upstream_unavailable", body.Error.Kind)
	}
}

func TestChunks_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/rag/chunks", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestViewPDF_ServesSourceFile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := uploadFile(t, srv.URL, "notes.txt", "the original document body")
	var uploaded struct {
		ClusterID string `json:"cluster_id"`
	}
	decode(t, resp.Body, &uploaded)

	viewResp, err := http.Get(srv.URL + "/rag/view_pdf?cluster_id=" + uploaded.ClusterID)
	if err != nil {
		t.Fatal(err)
	}
	defer viewResp.Body.Close()

	if viewResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", viewResp.StatusCode)
	}
	data, _ := io.ReadAll(viewResp.Body)
	if string(data) != "the original document body" {
		t.Errorf("served content mismatch: %q", data)
	}
}

func TestViewPDF_UnknownCluster(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/rag/view_pdf?cluster_id=nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
