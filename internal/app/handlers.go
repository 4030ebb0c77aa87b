package app

import (
	apphttp "github.com/yungbote/toktik-backend/internal/http"
	httpH "github.com/yungbote/toktik-backend/internal/http/handlers"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

func wireRouterConfig(log *logger.Logger, cfg Config, svc Services) apphttp.RouterConfig {
	log.Info("Wiring handlers...")
	health := httpH.NewHealthHandler(map[string]string{
		"service":           cfg.ServiceName,
		"version":           cfg.Version,
		"vectorProvider":    cfg.Vector.Provider,
		"embeddingProvider": cfg.Embedding.Provider,
	})
	return apphttp.RouterConfig{
		Log:                   log,
		ServiceName:           cfg.ServiceName,
		CORSOrigins:           cfg.CORSOrigins,
		HealthHandler:         health,
		VideoHandler:          httpH.NewVideoHandler(log, svc.Ingestion, cfg.IngestTimeout),
		RecommendationHandler: httpH.NewRecommendationHandler(svc.Preferences, svc.Recommender, cfg.Recommend.PageSize),
		EmbeddingHandler:      httpH.NewEmbeddingHandler(svc.Embedder),
	}
}
