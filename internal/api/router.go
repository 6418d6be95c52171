package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"barber-growth-backend/internal/metrics"
	"barber-growth-backend/internal/mw"
)

// RouterOptions carries the optional parts of the router.
type RouterOptions struct {
	// Limiter rate limits /api per client IP when set.
	Limiter *mw.IPRateLimiter
	// Metrics is served on MetricsPath when set.
	Metrics     *metrics.Metrics
	MetricsPath string
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(logger.Named("http")))

	r.GET("/healthz", h.Healthz)
	if opts.Metrics != nil && opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api")
	if opts.Limiter != nil {
		api.Use(mw.RateLimiter(opts.Limiter))
	}

	caching := func(c *gin.Context) { c.Next() }
	if h.cache != nil {
		caching = h.cache.Middleware()
	}

	{
		api.POST("/sync", h.PostSync)

		tenant := api.Group("/tenants/:tenant_id")
		tenant.POST("/sync", h.PostTenantSync)
		tenant.GET("/empty-slots", caching, h.GetEmptySlots)
		tenant.GET("/reactivation", caching, h.GetReactivation)
		tenant.POST("/reactivation/:client_id/status", h.SetReactivationStatus)
		tenant.GET("/client-behavior", caching, h.GetClientBehavior)
		tenant.GET("/alerts", caching, h.GetAlerts)
		tenant.POST("/alerts/:date/dismiss", h.DismissAlert)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
