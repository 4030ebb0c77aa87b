package app

import (
	"fmt"

	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/services"
)

type Services struct {
	Embedder    services.EmbeddingGenerator
	Analysis    *services.AnalysisController
	Ingestion   *services.IngestionCoordinator
	Recommender *services.RecommendationRetriever
	Preferences *services.PreferenceEncoder
}

func wireServices(log *logger.Logger, cfg Config, clients *Clients) (Services, error) {
	log.Info("Wiring services...")

	embedder, err := services.NewEmbeddingGenerator(log, services.EmbeddingConfig{Dimension: cfg.Embedding.Dim}, clients.LoadModel)
	if err != nil {
		return Services{}, fmt.Errorf("init embedding generator: %w", err)
	}

	analysis, err := services.NewAnalysisController(log, clients.Video, services.AnalysisConfig{
		PollInterval: cfg.Analysis.PollInterval,
		MaxPolls:     cfg.Analysis.MaxPolls,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init analysis controller: %w", err)
	}

	var ingestOpts []services.IngestionOption
	if clients.Objects != nil {
		ingestOpts = append(ingestOpts, services.WithObjectInspector(clients.Objects))
	}
	ingestion, err := services.NewIngestionCoordinator(log, analysis, embedder, clients.Index, ingestOpts...)
	if err != nil {
		return Services{}, fmt.Errorf("init ingestion coordinator: %w", err)
	}

	recommender, err := services.NewRecommendationRetriever(log, clients.Index, services.RetrieverConfig{
		BufferMultiplier: cfg.Recommend.BufferMultiplier,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init recommendation retriever: %w", err)
	}

	// A nil *VectorCache must not reach the interface.
	var cache services.VectorCache
	if clients.Cache != nil {
		cache = clients.Cache
	}
	prefs, err := services.NewPreferenceEncoder(log, embedder, cache)
	if err != nil {
		return Services{}, fmt.Errorf("init preference encoder: %w", err)
	}

	return Services{
		Embedder:    embedder,
		Analysis:    analysis,
		Ingestion:   ingestion,
		Recommender: recommender,
		Preferences: prefs,
	}, nil
}
