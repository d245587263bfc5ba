package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"supplyline-sync/config"
	"supplyline-sync/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/healthz", h.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/login", h.PostLogin)
		api.POST("/auth/logout", h.PostLogout)

		// Sync status must never be served from the cache.
		api.POST("/sync", h.PostSync)
		api.GET("/sync/status", h.GetSyncStatus)
	}

	data := api.Group("")
	data.Use(caching)
	{
		data.GET("/tools", h.GetTools)
		data.GET("/tools/calibration/due", h.GetCalibrationDue)
		data.GET("/tools/:id", h.GetTool)
		data.POST("/tools", h.PostTool)

		data.GET("/checkouts/active", h.GetActiveCheckouts)
		data.POST("/checkouts", h.PostCheckout)
		data.POST("/checkouts/:id/return", h.PostReturn)

		data.GET("/chemicals", h.GetChemicals)
		data.GET("/chemicals/low-stock", h.GetLowStockChemicals)
		data.GET("/chemicals/expiring", h.GetExpiringChemicals)
		data.POST("/issuances", h.PostIssuance)

		data.GET("/users", h.GetUsers)
		data.GET("/stats", h.GetStats)
	}

	return r
}
