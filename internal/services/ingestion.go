package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/observability"
	"github.com/yungbote/toktik-backend/internal/platform/gcp"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

// Analyzer drives one analysis job to a terminal state.
type Analyzer interface {
	Run(ctx context.Context, input string) (*AnalysisOutcome, error)
}

// ObjectInspector reports object attributes for locations it understands.
type ObjectInspector interface {
	Stat(ctx context.Context, location string) (*gcp.ObjectAttrs, bool, error)
}

type IngestRequest struct {
	StorageLocation string
	// AnalysisInput defaults to StorageLocation.
	AnalysisInput string
	Metadata      domain.Metadata
}

type IngestionCoordinator struct {
	log      *logger.Logger
	analyzer Analyzer
	embedder EmbeddingGenerator
	index    vectorindex.Index
	objects  ObjectInspector
	newID    func() string
}

type IngestionOption func(*IngestionCoordinator)

// WithObjectInspector enriches metadata with object attributes.
func WithObjectInspector(o ObjectInspector) IngestionOption {
	return func(c *IngestionCoordinator) { c.objects = o }
}

func WithIDGenerator(fn func() string) IngestionOption {
	return func(c *IngestionCoordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func NewIngestionCoordinator(log *logger.Logger, analyzer Analyzer, embedder EmbeddingGenerator, index vectorindex.Index, opts ...IngestionOption) (*IngestionCoordinator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if analyzer == nil || embedder == nil || index == nil {
		return nil, fmt.Errorf("analyzer, embedder and index are required")
	}
	c := &IngestionCoordinator{
		log:      log.With("service", "IngestionCoordinator"),
		analyzer: analyzer,
		embedder: embedder,
		index:    index,
		newID:    func() string { return "video-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ingest analyzes, embeds and upserts one video. Nothing is written unless
// analysis and embedding both succeed.
func (c *IngestionCoordinator) Ingest(ctx context.Context, req IngestRequest) (rec *domain.VideoRecord, err error) {
	loc := strings.TrimSpace(req.StorageLocation)
	if loc == "" {
		return nil, domain.InvalidInputf("storageLocation is required")
	}
	input := strings.TrimSpace(req.AnalysisInput)
	if input == "" {
		input = loc
	}
	ctx, span := observability.StartSpan(ctx, "ingestion.ingest", attribute.String("ingest.storage_location", loc))
	defer func() {
		err = reportDeadline(err)
		observability.EndSpan(span, err)
	}()

	base := req.Metadata.Clone()
	if c.objects != nil {
		attrs, ok, err := c.objects.Stat(ctx, loc)
		if err != nil {
			return nil, err
		}
		if ok {
			stat := domain.Metadata{domain.MetaSizeBytes: domain.Number(float64(attrs.Size))}
			if attrs.ContentType != "" {
				stat[domain.MetaContentType] = domain.String(attrs.ContentType)
			}
			base = stat.Merge(base)
		}
	}

	outcome, err := c.analyzer.Run(ctx, input)
	if err != nil {
		c.log.Warn("Ingestion aborted during analysis", "storage_location", loc, "error", err)
		return nil, err
	}
	vec, err := c.embedder.Embed(ctx, outcome.Description)
	if err != nil {
		c.log.Warn("Ingestion aborted during embedding", "storage_location", loc, "error", err)
		return nil, err
	}

	id := c.newID()
	record := domain.VideoRecord{
		ID:        id,
		Embedding: vec,
		Metadata: base.Merge(domain.Metadata{
			domain.MetaStorageLocation: domain.String(loc),
			domain.MetaDescription:     domain.String(outcome.Description),
			vectorindex.MetaVideoID:    domain.String(id),
		}),
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := c.index.Upsert(ctx, []vectorindex.Vector{{ID: record.ID, Values: record.Embedding, Metadata: record.Metadata}}); err != nil {
		c.log.Error("Video upsert failed", "video_id", id, "storage_location", loc, "error", err)
		return nil, &domain.IndexError{Op: "upsert", Cause: err}
	}
	span.SetAttributes(attribute.String("ingest.video_id", id))
	c.log.Info("Video ingested",
		"video_id", id,
		"storage_location", loc,
		"job_id", outcome.Job.JobID,
		"description", outcome.Description,
	)
	return &record, nil
}

// reportDeadline folds an expired outer deadline into the analysis timeout
// category.
func reportDeadline(err error) error {
	if err == nil || errors.Is(err, domain.ErrAnalysisTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrAnalysisTimeout, err)
	}
	return err
}
