package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arigen-tech/docsearch/pkg/logger"
)

func TestOllamaGeneratorGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(ollamaResponse{Response: "generated answer", Done: true})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "test-model", 5*time.Second, logger.NewTestLogger())

	out, err := g.Generate(context.Background(), "a prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", out)
}

func TestOllamaGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "test-model", 5*time.Second, logger.NewTestLogger())

	_, err := g.Generate(context.Background(), "a prompt")
	assert.Error(t, err)
}

func TestOllamaGeneratorModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Error: "model not found"})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "test-model", 5*time.Second, logger.NewTestLogger())

	_, err := g.Generate(context.Background(), "a prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaGeneratorUnreachable(t *testing.T) {
	g := NewOllamaGenerator("http://127.0.0.1:1", "test-model", time.Second, logger.NewTestLogger())

	_, err := g.Generate(context.Background(), "a prompt")
	assert.Error(t, err)
}
