package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers liveness checks with the static deployment facts
// operators usually ask for first.
type HealthHandler struct {
	info map[string]string
}

func NewHealthHandler(info map[string]string) *HealthHandler {
	cp := make(map[string]string, len(info))
	for k, v := range info {
		if v != "" {
			cp[k] = v
		}
	}
	return &HealthHandler{info: cp}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	body := gin.H{"status": "ok"}
	for k, v := range h.info {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
