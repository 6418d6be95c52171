package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"barber-growth-backend/internal/growth"
)

// PostSync handles POST /api/sync and runs a full growth sync.
func (h *Handler) PostSync(c *gin.Context) {
	sum, err := h.syncer.RunGrowthSync(c.Request.Context())
	h.flushCache()
	if err != nil {
		if errors.Is(err, growth.ErrStoreUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// PostTenantSync handles POST /api/tenants/:tenant_id/sync.
func (h *Handler) PostTenantSync(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	sum, err := h.syncer.SyncTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.flushCache()
	c.JSON(http.StatusOK, sum)
}
