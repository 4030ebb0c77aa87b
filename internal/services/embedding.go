package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/observability"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

// FeatureExtractor runs the pretrained model over text and returns one
// feature row per token. Backends that pool server-side return one row.
type FeatureExtractor interface {
	Extract(ctx context.Context, text string) ([][]float32, error)
}

// ModelLoader builds the extractor. It is expensive and runs at most once
// successfully per generator.
type ModelLoader func(ctx context.Context) (FeatureExtractor, error)

type EmbeddingGenerator interface {
	// Initialize loads the model if it is not loaded yet.
	Initialize(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type EmbeddingConfig struct {
	// Dimension is the expected vector width. Zero accepts whatever the
	// model produces.
	Dimension int
}

type modelHandle struct {
	fx FeatureExtractor
}

type embeddingGenerator struct {
	log   *logger.Logger
	load  ModelLoader
	dim   int
	mu    sync.Mutex
	model atomic.Pointer[modelHandle]
}

func NewEmbeddingGenerator(log *logger.Logger, cfg EmbeddingConfig, load ModelLoader) (EmbeddingGenerator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if load == nil {
		return nil, fmt.Errorf("model loader required")
	}
	if cfg.Dimension < 0 {
		return nil, fmt.Errorf("embedding dimension must not be negative")
	}
	return &embeddingGenerator{
		log:  log.With("service", "EmbeddingGenerator"),
		load: load,
		dim:  cfg.Dimension,
	}, nil
}

func (g *embeddingGenerator) Dimension() int { return g.dim }

func (g *embeddingGenerator) Initialize(ctx context.Context) error {
	_, err := g.extractor(ctx)
	return err
}

func (g *embeddingGenerator) extractor(ctx context.Context) (FeatureExtractor, error) {
	if h := g.model.Load(); h != nil {
		return h.fx, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if h := g.model.Load(); h != nil {
		return h.fx, nil
	}
	fx, err := g.load(ctx)
	if err != nil {
		g.log.Error("Embedding model load failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	if fx == nil {
		return nil, fmt.Errorf("%w: loader returned no model", domain.ErrModelUnavailable)
	}
	g.model.Store(&modelHandle{fx: fx})
	g.log.Info("Embedding model loaded", "dimension", g.dim)
	return fx, nil
}

func (g *embeddingGenerator) Embed(ctx context.Context, text string) (vec []float32, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.InvalidInputf("embedding text must not be empty")
	}
	ctx, span := observability.StartSpan(ctx, "embedding.embed", attribute.Int("text.length", len(text)))
	defer func() { observability.EndSpan(span, err) }()

	fx, err := g.extractor(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := fx.Extract(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	pooled, err := meanPool(rows)
	if err != nil {
		return nil, err
	}
	if g.dim > 0 && len(pooled) != g.dim {
		return nil, fmt.Errorf("%w: dimension want=%d got=%d", domain.ErrEmbeddingCorrupt, g.dim, len(pooled))
	}
	out, err := l2Normalize(pooled)
	if err != nil {
		return nil, err
	}
	return out, ValidateEmbedding(out)
}

// meanPool averages token rows component-wise in float64.
func meanPool(rows [][]float32) ([]float64, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: model returned no features", domain.ErrEmbeddingCorrupt)
	}
	width := len(rows[0])
	sum := make([]float64, width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: token %d has width %d, want %d", domain.ErrEmbeddingCorrupt, i, len(row), width)
		}
		for j, f := range row {
			sum[j] += float64(f)
		}
	}
	n := float64(len(rows))
	for j := range sum {
		sum[j] /= n
	}
	return sum, nil
}

func l2Normalize(v []float64) ([]float32, error) {
	var sq float64
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &domain.EmbeddingError{Index: i, Value: f, Dim: len(v)}
		}
		sq += f * f
	}
	norm := math.Sqrt(sq)
	if norm == 0 || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: vector norm is %v", domain.ErrEmbeddingCorrupt, norm)
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f / norm)
	}
	return out, nil
}

// ValidateEmbedding rejects empty vectors and non-finite components.
func ValidateEmbedding(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrEmbeddingCorrupt)
	}
	for i, f := range v {
		x := float64(f)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &domain.EmbeddingError{Index: i, Value: x, Dim: len(v)}
		}
	}
	return nil
}
