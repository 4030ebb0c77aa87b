package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/observability"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

const (
	DefaultPageSize         = 5
	DefaultBufferMultiplier = 3
	// MaxTopK bounds one over-fetching query; page sizes that would exceed it
	// are rejected.
	MaxTopK = 1000
)

type RetrieverConfig struct {
	BufferMultiplier int
}

type RecommendRequest struct {
	QueryVector []float32
	// ExcludeIDs is read, never modified.
	ExcludeIDs []string
	PageSize   int
	// ContentType, when set, keeps only videos stored with that content type.
	ContentType string
}

type RecommendationRetriever struct {
	log        *logger.Logger
	index      vectorindex.Index
	multiplier int
}

func NewRecommendationRetriever(log *logger.Logger, index vectorindex.Index, cfg RetrieverConfig) (*RecommendationRetriever, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index required")
	}
	mult := cfg.BufferMultiplier
	if mult <= 0 {
		mult = DefaultBufferMultiplier
	}
	if mult > MaxTopK {
		return nil, fmt.Errorf("buffer multiplier %d exceeds max top-k %d", mult, MaxTopK)
	}
	return &RecommendationRetriever{
		log:        log.With("service", "RecommendationRetriever"),
		index:      index,
		multiplier: mult,
	}, nil
}

// Recommend runs a single over-fetching query and returns at most PageSize
// items in index rank order, skipping excluded ids and repeated content keys.
// A short page is returned as is.
func (r *RecommendationRetriever) Recommend(ctx context.Context, req RecommendRequest) (res domain.RecommendationResult, err error) {
	if req.PageSize <= 0 {
		return domain.RecommendationResult{}, domain.InvalidInputf("pageSize must be positive, got %d", req.PageSize)
	}
	if maxPage := MaxTopK / r.multiplier; req.PageSize > maxPage {
		return domain.RecommendationResult{}, domain.InvalidInputf("pageSize must be at most %d, got %d", maxPage, req.PageSize)
	}
	if len(req.QueryVector) == 0 {
		return domain.RecommendationResult{}, domain.InvalidInputf("query vector is required")
	}
	if err := ValidateEmbedding(req.QueryVector); err != nil {
		return domain.RecommendationResult{}, domain.InvalidInputf("query vector: %v", err)
	}

	topK := req.PageSize * r.multiplier
	ctx, span := observability.StartSpan(ctx, "recommendation.recommend",
		attribute.Int("recommend.page_size", req.PageSize),
		attribute.Int("recommend.top_k", topK),
		attribute.Int("recommend.excluded", len(req.ExcludeIDs)),
	)
	defer func() { observability.EndSpan(span, err) }()

	excluded := make(map[string]struct{}, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	filter := &vectorindex.Filter{}
	if len(excluded) > 0 && r.index.Capabilities().ExcludeFilter {
		filter.ExcludeIDs = append([]string(nil), req.ExcludeIDs...)
	}
	if req.ContentType != "" {
		filter.Equals = map[string]domain.Value{domain.MetaContentType: domain.String(req.ContentType)}
	}
	if filter.Empty() {
		filter = nil
	}

	matches, err := r.index.Query(ctx, req.QueryVector, topK, filter)
	if err != nil {
		return domain.RecommendationResult{}, &domain.IndexError{Op: "query", Cause: err}
	}

	items := make([]domain.RecommendationItem, 0, req.PageSize)
	seen := make(map[string]struct{}, req.PageSize)
	for _, m := range matches {
		if len(items) == req.PageSize {
			break
		}
		if _, skip := excluded[m.ID]; skip {
			continue
		}
		if req.ContentType != "" {
			if ct, _ := m.Metadata.GetString(domain.MetaContentType); ct != req.ContentType {
				continue
			}
		}
		key := m.Metadata.ContentKey(m.ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, domain.RecommendationItem{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}

	r.log.Debug("Recommendations served",
		"page_size", req.PageSize,
		"candidates", len(matches),
		"returned", len(items),
		"native_filter", filter != nil,
	)
	return domain.RecommendationResult{Items: items}, nil
}
