package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/http/response"
	"github.com/yungbote/toktik-backend/internal/services"
)

type PreferenceResolver interface {
	Resolve(ctx context.Context, q services.PreferenceQuery) ([]float32, error)
}

type Recommender interface {
	Recommend(ctx context.Context, req services.RecommendRequest) (domain.RecommendationResult, error)
}

type RecommendationHandler struct {
	prefs       PreferenceResolver
	recommender Recommender
	pageSize    int
}

func NewRecommendationHandler(prefs PreferenceResolver, recommender Recommender, defaultPageSize int) *RecommendationHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = services.DefaultPageSize
	}
	return &RecommendationHandler{prefs: prefs, recommender: recommender, pageSize: defaultPageSize}
}

type recommendRequest struct {
	PreferenceVector []float32 `json:"preferenceVector"`
	PreferenceText   string    `json:"preferenceText"`
	UserID           string    `json:"userId"`
	ExcludeIDs       []string  `json:"excludeIds"`
	PageSize         *int      `json:"pageSize"`
	ContentType      string    `json:"contentType"`
}

// POST /api/recommendations
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, domain.InvalidInputf("invalid request body: %v", err))
		return
	}
	pageSize := h.pageSize
	if req.PageSize != nil {
		pageSize = *req.PageSize
	}
	if pageSize <= 0 {
		response.RespondErr(c, domain.InvalidInputf("pageSize must be positive, got %d", pageSize))
		return
	}

	vec, err := h.prefs.Resolve(c.Request.Context(), services.PreferenceQuery{
		Vector: req.PreferenceVector,
		Text:   req.PreferenceText,
		UserID: req.UserID,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.recommender.Recommend(c.Request.Context(), services.RecommendRequest{
		QueryVector: vec,
		ExcludeIDs:  req.ExcludeIDs,
		PageSize:    pageSize,
		ContentType: strings.TrimSpace(req.ContentType),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	items := res.Items
	if items == nil {
		items = []domain.RecommendationItem{}
	}
	response.RespondOK(c, gin.H{"items": items, "count": len(items)})
}
