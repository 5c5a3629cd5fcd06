package openai_test

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/option"

	"github.com/opencampus/sage/pkg/index/openai"
)

func TestEmbedder_Integration(t *testing.T) {
	_ = godotenv.Load("../../../.env") // Try to load .env from root
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping OpenAI integration test: OPENAI_API_KEY not set")
	}

	embedder := openai.NewEmbedder(option.WithAPIKey(apiKey))

	ctx := context.Background()
	vectors, err := embedder.Embed(ctx, []string{"cells divide by mitosis", "energy is conserved"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) == 0 || len(vectors[0]) != len(vectors[1]) {
		t.Errorf("vectors have inconsistent dimensions: %d vs %d", len(vectors[0]), len(vectors[1]))
	}
}
