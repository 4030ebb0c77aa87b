package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/toktik-backend/internal/platform/gcp"
	"github.com/yungbote/toktik-backend/internal/platform/hfinference"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/openai"
	"github.com/yungbote/toktik-backend/internal/platform/redis"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
	"github.com/yungbote/toktik-backend/internal/services"
)

type closer struct {
	name  string
	close func() error
}

type Clients struct {
	Video *gcp.VideoAnalyzer
	// Objects and Cache are nil when disabled.
	Objects gcp.ObjectInspector
	Cache   *redis.VectorCache
	Index   vectorindex.Index
	// LoadModel opens the embedding backend on first use.
	LoadModel services.ModelLoader

	closers []closer
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (_ *Clients, err error) {
	c := &Clients{}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	log.Info("Wiring clients...")

	c.Video, err = gcp.NewVideoAnalyzer(ctx, log, gcp.VideoConfig{
		Credentials:   cfg.credentials(),
		MinConfidence: cfg.Analysis.MinConfidence,
		SubmitRate:    cfg.Analysis.SubmitRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init video analyzer: %w", err)
	}
	c.track("video_analyzer", c.Video.Close)

	if cfg.GCP.InspectObjects {
		storageCfg := cfg.StorageConfig()
		if err = gcp.ValidateStorageConfig(storageCfg); err != nil {
			return nil, fmt.Errorf("object storage config: %w", err)
		}
		c.Objects, err = gcp.NewObjectInspector(ctx, log, storageCfg)
		if err != nil {
			return nil, fmt.Errorf("init object inspector: %w", err)
		}
		c.track("object_inspector", c.Objects.Close)
	}

	c.Index, err = resolveVectorIndex(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		c.Cache, err = redis.NewVectorCache(ctx, log, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init preference cache: %w", err)
		}
		c.track("preference_cache", c.Cache.Close)
	} else {
		log.Warn("REDIS_ADDR not set; preference vectors are not cached")
	}

	c.LoadModel, err = embeddingLoader(log, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// embeddingLoader validates the backend settings up front and defers the
// network round trip to the first load.
func embeddingLoader(log *logger.Logger, cfg EmbeddingSettings) (services.ModelLoader, error) {
	switch cfg.Provider {
	case EmbeddingProviderHF:
		ex, err := hfinference.New(log, hfinference.Config{
			BaseURL:  cfg.HFBaseURL,
			APIToken: cfg.HFAPIToken,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init feature extractor: %w", err)
		}
		return func(ctx context.Context) (services.FeatureExtractor, error) {
			if !cfg.Warmup {
				return ex, nil
			}
			dim, err := ex.Warmup(ctx)
			if err != nil {
				return nil, err
			}
			log.Info("Embedding model warm", "provider", cfg.Provider, "model", cfg.Model, "feature_dim", dim)
			return ex, nil
		}, nil

	case EmbeddingProviderOpenAI:
		ex, err := openai.NewExtractor(log, openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Dimensions: cfg.Dim,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai extractor: %w", err)
		}
		return func(context.Context) (services.FeatureExtractor, error) { return ex, nil }, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}

func (c *Clients) track(name string, fn func() error) {
	c.closers = append(c.closers, closer{name: name, close: fn})
}

// Close releases clients in reverse construction order.
func (c *Clients) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.closers[i].name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
