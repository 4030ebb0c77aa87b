package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

// sharedEncodeTimeout bounds an encoding shared by concurrent callers, which
// outlives the cancellation of whichever caller started it.
const sharedEncodeTimeout = 30 * time.Second

// VectorCache keeps encoded preference vectors between requests.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

type PreferenceQuery struct {
	Vector []float32
	Text   string
	UserID string
}

// PreferenceEncoder turns a caller's preference into a query vector, either
// taken verbatim or encoded from text. Encodings are cached per user and text.
type PreferenceEncoder struct {
	log      *logger.Logger
	embedder EmbeddingGenerator
	cache    VectorCache
	group    singleflight.Group
}

func NewPreferenceEncoder(log *logger.Logger, embedder EmbeddingGenerator, cache VectorCache) (*PreferenceEncoder, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding generator required")
	}
	return &PreferenceEncoder{
		log:      log.With("service", "PreferenceEncoder"),
		embedder: embedder,
		cache:    cache,
	}, nil
}

func (e *PreferenceEncoder) Resolve(ctx context.Context, q PreferenceQuery) ([]float32, error) {
	text := strings.TrimSpace(q.Text)
	switch {
	case len(q.Vector) > 0 && text != "":
		return nil, domain.InvalidInputf("provide preferenceVector or preferenceText, not both")
	case len(q.Vector) > 0:
		if dim := e.embedder.Dimension(); dim > 0 && len(q.Vector) != dim {
			return nil, domain.InvalidInputf("preferenceVector must have %d components, got %d", dim, len(q.Vector))
		}
		if err := ValidateEmbedding(q.Vector); err != nil {
			return nil, domain.InvalidInputf("preferenceVector: %v", err)
		}
		return append([]float32(nil), q.Vector...), nil
	case text == "":
		return nil, domain.InvalidInputf("preferenceVector or preferenceText is required")
	}

	key := preferenceKey(q.UserID, text)
	if vec, ok := e.cached(ctx, key, q.UserID); ok {
		return vec, nil
	}

	ch := e.group.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedEncodeTimeout)
		defer cancel()
		vec, err := e.embedder.Embed(sctx, text)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			if err := e.cache.Set(sctx, key, vec); err != nil {
				e.log.Warn("Preference cache write failed", "user_id", q.UserID, "error", err)
			}
		}
		return vec, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]float32(nil), res.Val.([]float32)...), nil
	}
}

// cached reports a hit only for vectors that still fit the current model.
// Entries written under another dimension are re-encoded and overwritten.
func (e *PreferenceEncoder) cached(ctx context.Context, key, userID string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	vec, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.log.Warn("Preference cache read failed", "user_id", userID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if dim := e.embedder.Dimension(); dim > 0 && len(vec) != dim {
		e.log.Info("Preference cache entry stale", "user_id", userID, "cached_dim", len(vec), "dim", dim)
		return nil, false
	}
	if err := ValidateEmbedding(vec); err != nil {
		e.log.Warn("Preference cache entry invalid", "user_id", userID, "error", err)
		return nil, false
	}
	return vec, true
}

func preferenceKey(userID, text string) string {
	sum := sha256.Sum256([]byte(text))
	user := strings.TrimSpace(userID)
	if user == "" {
		user = "anon"
	}
	return user + ":" + hex.EncodeToString(sum[:8])
}
