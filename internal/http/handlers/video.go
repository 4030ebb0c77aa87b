package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/http/response"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/services"
)

type VideoIngester interface {
	Ingest(ctx context.Context, req services.IngestRequest) (*domain.VideoRecord, error)
}

type VideoHandler struct {
	log      *logger.Logger
	ingester VideoIngester
	timeout  time.Duration
}

// NewVideoHandler applies timeout as the outer deadline of one ingestion.
// Zero leaves the request context alone.
func NewVideoHandler(log *logger.Logger, ingester VideoIngester, timeout time.Duration) *VideoHandler {
	return &VideoHandler{log: log.With("handler", "VideoHandler"), ingester: ingester, timeout: timeout}
}

type ingestRequest struct {
	StorageLocation  string         `json:"storageLocation"`
	AnalysisInput    string         `json:"analysisInput"`
	OriginalFileName string         `json:"originalFileName"`
	ContentType      string         `json:"contentType"`
	Metadata         map[string]any `json:"metadata"`
}

type videoResponse struct {
	ID        string          `json:"id"`
	Metadata  domain.Metadata `json:"metadata"`
	Dimension int             `json:"dimension"`
}

// POST /api/videos/ingest
func (h *VideoHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, domain.InvalidInputf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.StorageLocation) == "" {
		response.RespondErr(c, domain.InvalidInputf("storageLocation is required"))
		return
	}

	md := domain.MetadataFromMap(req.Metadata)
	if name := strings.TrimSpace(req.OriginalFileName); name != "" {
		md[domain.MetaOriginalFileName] = domain.String(name)
	}
	if ct := strings.TrimSpace(req.ContentType); ct != "" {
		md[domain.MetaContentType] = domain.String(ct)
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	rec, err := h.ingester.Ingest(ctx, services.IngestRequest{
		StorageLocation: req.StorageLocation,
		AnalysisInput:   req.AnalysisInput,
		Metadata:        md,
	})
	if err != nil {
		h.log.Debug("Ingestion request failed", "storage_location", req.StorageLocation, "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"video": videoResponse{
		ID:        rec.ID,
		Metadata:  rec.Metadata,
		Dimension: len(rec.Embedding),
	}})
}
