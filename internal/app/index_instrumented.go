package app

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/toktik-backend/internal/observability"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

type breakerSettings struct {
	failures int
	timeout  time.Duration
}

// instrumentedIndex traces and logs every index call and sheds load through
// a circuit breaker once the backend keeps failing.
type instrumentedIndex struct {
	log      *logger.Logger
	provider string
	inner    vectorindex.Index
	breaker  *gobreaker.CircuitBreaker[any]
}

func instrumentIndex(log *logger.Logger, provider string, inner vectorindex.Index, bs breakerSettings) vectorindex.Index {
	if inner == nil {
		return nil
	}
	s := &instrumentedIndex{
		log:      log.With("service", "VectorIndex", "provider", provider),
		provider: provider,
		inner:    inner,
	}
	if bs.failures > 0 {
		s.breaker = newIndexBreaker(s.log, provider, bs)
	}
	return s
}

func newIndexBreaker(log *logger.Logger, provider string, bs breakerSettings) *gobreaker.CircuitBreaker[any] {
	threshold := uint32(bs.failures)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "vectorindex." + provider,
		MaxRequests: 1,
		Timeout:     bs.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Callers abandoning a request say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Vector index breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func (s *instrumentedIndex) Capabilities() vectorindex.Capabilities {
	return s.inner.Capabilities()
}

func (s *instrumentedIndex) Upsert(ctx context.Context, vectors []vectorindex.Vector) (err error) {
	ctx, span := observability.StartSpan(ctx, "vectorindex.upsert",
		attribute.String("vector.provider", s.provider),
		attribute.Int("vector.count", len(vectors)),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	_, err = s.execute(func() (any, error) {
		return nil, s.inner.Upsert(ctx, vectors)
	})
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedIndex) Query(ctx context.Context, vector []float32, topK int, filter *vectorindex.Filter) (out []vectorindex.Match, err error) {
	ctx, span := observability.StartSpan(ctx, "vectorindex.query",
		attribute.String("vector.provider", s.provider),
		attribute.Int("vector.top_k", topK),
		attribute.Bool("vector.filtered", !filter.Empty()),
	)
	defer func() {
		span.SetAttributes(attribute.Int("vector.matches", len(out)))
		observability.EndSpan(span, err)
	}()

	start := time.Now()
	res, err := s.execute(func() (any, error) {
		return s.inner.Query(ctx, vector, topK, filter)
	})
	s.observe("query", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	out, _ = res.([]vectorindex.Match)
	return out, nil
}

func (s *instrumentedIndex) execute(fn func() (any, error)) (any, error) {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn)
}

func (s *instrumentedIndex) observe(operation string, err error, dur time.Duration) {
	if err != nil {
		s.log.Warn("Vector index operation failed", "operation", operation, "duration_ms", dur.Milliseconds(), "error", err)
		return
	}
	s.log.Debug("Vector index operation", "operation", operation, "duration_ms", dur.Milliseconds())
}
