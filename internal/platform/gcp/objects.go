package gcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

// ObjectAttrs is the subset of object attributes recorded as video metadata.
type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
}

type ObjectInspector interface {
	// Stat returns attributes for a gs:// location. Other schemes report
	// ok=false without an error.
	Stat(ctx context.Context, location string) (attrs *ObjectAttrs, ok bool, err error)
	Close() error
}

type objectInspector struct {
	log    *logger.Logger
	client *storage.Client
}

func NewObjectInspector(ctx context.Context, log *logger.Logger, cfg StorageConfig) (ObjectInspector, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateStorageConfig(cfg); err != nil {
		return nil, err
	}
	opts := append(cfg.ClientOptions(), option.WithScopes(storage.ScopeReadOnly))
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	log.Info("Object storage initialized", "mode", cfg.Mode, "emulator_host", cfg.EmulatorHost)
	return &objectInspector{log: log.With("service", "gcp.ObjectInspector"), client: c}, nil
}

func (s *objectInspector) Stat(ctx context.Context, location string) (*ObjectAttrs, bool, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, false, domain.InvalidInputf("%v", err)
	}
	if !loc.IsGCS() {
		return nil, false, nil
	}
	attrs, err := s.client.Bucket(loc.Bucket).Object(loc.Key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, false, domain.InvalidInputf("object %s does not exist", loc)
		}
		return nil, false, fmt.Errorf("storage attrs %s: %w", loc, err)
	}
	return &ObjectAttrs{Size: attrs.Size, ContentType: attrs.ContentType, Updated: attrs.Updated}, true, nil
}

func (s *objectInspector) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
