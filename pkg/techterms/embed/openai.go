package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint
// (OpenAI, Ollama, LocalAI, vLLM).
type OpenAIConfig struct {
	Host  string // base URL; "/v1" is appended when missing
	Model string
	Token string // "none" is sent when empty
}

// OpenAI embeds texts through an OpenAI-compatible API.
type OpenAI struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

// NewOpenAI connects to the endpoint described by cfg.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.Host == "" || cfg.Model == "" {
		return nil, fmt.Errorf("embedding host and model are required")
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL(cfg.Host)),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &OpenAI{
		embedder: embedder,
		model:    cfg.Model,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// Model returns the embedding model name.
func (o *OpenAI) Model() string { return o.model }

// EmbedTexts implements Embedder.
func (o *OpenAI) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	o.logger.Debug("generating embeddings", "count", len(texts))

	vecs, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		o.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding endpoint returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

func baseURL(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasSuffix(host, "/v1") {
		return host
	}
	return host + "/v1"
}
