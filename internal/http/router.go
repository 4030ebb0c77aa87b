package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/toktik-backend/internal/http/handlers"
	httpMW "github.com/yungbote/toktik-backend/internal/http/middleware"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	HealthHandler         *httpH.HealthHandler
	VideoHandler          *httpH.VideoHandler
	RecommendationHandler *httpH.RecommendationHandler
	EmbeddingHandler      *httpH.EmbeddingHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "toktik-backend"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.VideoHandler != nil {
			api.POST("/videos/ingest", cfg.VideoHandler.Ingest)
		}
		if cfg.RecommendationHandler != nil {
			api.POST("/recommendations", cfg.RecommendationHandler.Recommend)
		}
		if cfg.EmbeddingHandler != nil {
			api.POST("/embed", cfg.EmbeddingHandler.Embed)
		}
	}

	return r
}
