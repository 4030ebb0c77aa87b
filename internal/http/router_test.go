package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/toktik-backend/internal/http/handlers"
	httpMW "github.com/yungbote/toktik-backend/internal/http/middleware"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/services"
)

type unitRows struct{}

func (unitRows) Extract(context.Context, string) ([][]float32, error) {
	return [][]float32{{1, 0}}, nil
}

func TestRouterWiresRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gen, err := services.NewEmbeddingGenerator(logger.NewNop(), services.EmbeddingConfig{}, func(context.Context) (services.FeatureExtractor, error) {
		return unitRows{}, nil
	})
	if err != nil {
		t.Fatalf("NewEmbeddingGenerator: %v", err)
	}
	r := NewRouter(RouterConfig{
		Log:              logger.NewNop(),
		HealthHandler:    httpH.NewHealthHandler(nil),
		EmbeddingHandler: httpH.NewEmbeddingHandler(gen),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/healthcheck", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("healthcheck: want=200 got=%d", rec.Code)
	}
	if rec.Header().Get(httpMW.HeaderRequestID) == "" {
		t.Fatalf("expected request id header")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/embed", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("embed: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/api/videos/ingest", nil))
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("unwired route: want=404 got=%d", rec.Code)
	}
}
