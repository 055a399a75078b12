package students

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/pkg/response"
)

// AdminStore is the student surface the stateless REST endpoints use.
type AdminStore interface {
	DeleteAll(ctx context.Context) error
}

// Handler handles the student REST endpoints.
type Handler struct {
	store  AdminStore
	logger *zap.Logger
}

// NewHandler creates a students REST handler.
func NewHandler(store AdminStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// DeleteAll handles DELETE /api/students, the administrative reset of the
// roster. Connected clients re-sync through their own reconnect flow.
func (h *Handler) DeleteAll(c *gin.Context) {
	if err := h.store.DeleteAll(c.Request.Context()); err != nil {
		h.logger.Error("delete students", zap.Error(err))
		response.Internal(c, "Failed to delete students.")
		return
	}
	response.OK(c, gin.H{"message": "All students deleted."})
}
