package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/toktik-backend/internal/platform/httpx"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Extractor produces already-pooled sentence embeddings from an
// OpenAI-compatible embeddings endpoint. Each result is a single feature row.
type Extractor struct {
	log        *logger.Logger
	client     *goopenai.Client
	model      goopenai.EmbeddingModel
	dimensions int
	maxRetries int
}

func NewExtractor(log *logger.Logger, cfg Config) (*Extractor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: missing api key")
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	model := cfg.Model
	if model == "" {
		model = string(goopenai.SmallEmbedding3)
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	return &Extractor{
		log:        log.With("service", "openai.Extractor"),
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      goopenai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
		maxRetries: retries,
	}, nil
}

func (e *Extractor) Extract(ctx context.Context, text string) ([][]float32, error) {
	req := goopenai.EmbeddingRequest{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: e.dimensions,
	}
	var last error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err == nil {
			if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
				return nil, fmt.Errorf("openai: empty embedding response")
			}
			return [][]float32{resp.Data[0].Embedding}, nil
		}
		last = err
		if !retryable(err) || attempt == e.maxRetries {
			break
		}
		e.log.Warn("Embedding request failed; retrying", "attempt", attempt+1, "error", err)
		if err := httpx.Sleep(ctx, httpx.JitterSleep(time.Duration(attempt+1)*500*time.Millisecond)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("openai create embeddings: %w", last)
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return httpx.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return httpx.IsRetryableHTTPStatus(reqErr.HTTPStatusCode)
	}
	return httpx.IsRetryableError(err)
}
