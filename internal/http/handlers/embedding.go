package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/http/response"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type EmbeddingHandler struct {
	embedder Embedder
}

func NewEmbeddingHandler(embedder Embedder) *EmbeddingHandler {
	return &EmbeddingHandler{embedder: embedder}
}

// POST /api/embed
func (h *EmbeddingHandler) Embed(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, domain.InvalidInputf("invalid request body: %v", err))
		return
	}
	vec, err := h.embedder.Embed(c.Request.Context(), req.Text)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"embedding": vec, "dimension": len(vec)})
}
