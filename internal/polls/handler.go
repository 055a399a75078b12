package polls

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/internal/models"
	"github.com/swarooperla/Live-Polling-System/pkg/response"
)

// AdminStore is the poll surface the stateless REST endpoints use.
type AdminStore interface {
	ListAll(ctx context.Context) ([]models.Poll, error)
	DeleteAll(ctx context.Context) error
}

// Handler handles the poll history REST endpoints.
type Handler struct {
	store  AdminStore
	cache  *Cache
	logger *zap.Logger
}

// NewHandler creates a polls REST handler.
func NewHandler(store AdminStore, cache *Cache, logger *zap.Logger) *Handler {
	return &Handler{store: store, cache: cache, logger: logger}
}

// List handles GET /api/polls. Newest first.
func (h *Handler) List(c *gin.Context) {
	polls, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list polls", zap.Error(err))
		response.Internal(c, "Failed to load poll history.")
		return
	}
	if polls == nil {
		polls = []models.Poll{}
	}
	response.OK(c, polls)
}

// DeleteAll handles DELETE /api/polls, the administrative purge of the whole
// poll history. The active-poll cache is dropped so the broadcast view cannot
// outlive the store.
func (h *Handler) DeleteAll(c *gin.Context) {
	if err := h.store.DeleteAll(c.Request.Context()); err != nil {
		h.logger.Error("delete polls", zap.Error(err))
		response.Internal(c, "Failed to delete poll history.")
		return
	}
	h.cache.Invalidate(c.Request.Context())
	response.OK(c, gin.H{"message": "All poll history deleted."})
}
