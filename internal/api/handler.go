package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"barber-growth-backend/internal/growth"
	"barber-growth-backend/internal/mw"
	"barber-growth-backend/internal/parse"
	"barber-growth-backend/internal/store"
)

// Syncer runs growth syncs on demand.
type Syncer interface {
	RunGrowthSync(ctx context.Context) (growth.Summary, error)
	SyncTenant(ctx context.Context, tenantID uuid.UUID) (growth.Summary, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	syncer  Syncer
	webpush *webpush.Options
	cache   *mw.ResponseCache
	logger  *zap.Logger
}

// NewHandler creates a new API handler. A nil response cache disables caching.
func NewHandler(s store.Store, syncer Syncer, webpushOptions *webpush.Options, rc *mw.ResponseCache, logger *zap.Logger) *Handler {
	return &Handler{
		store:   s,
		syncer:  syncer,
		webpush: webpushOptions,
		cache:   rc,
		logger:  logger.Named("api"),
	}
}

func (h *Handler) flushCache() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

// tenantParam parses the :tenant_id path parameter, answering 400 when invalid.
func tenantParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("tenant_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return uuid.Nil, false
	}
	return id, true
}

// validDate answers 400 unless raw is a YYYY-MM-DD date.
func validDate(c *gin.Context, raw string) bool {
	if _, err := parse.ParseDate(raw); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return false
	}
	return true
}

// storeError maps a store error to a response.
func (h *Handler) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	_ = c.Error(err)
	h.logger.Error("store request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
