package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/oondels/emergency-gate-monitoring/config"
	"github.com/oondels/emergency-gate-monitoring/internal/engine"
	"github.com/oondels/emergency-gate-monitoring/internal/mw"
	"github.com/oondels/emergency-gate-monitoring/internal/store"
	"github.com/oondels/emergency-gate-monitoring/internal/ws"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(
	cfg *config.Config,
	s store.Store,
	machine ReportApplier,
	reconciler BatchReconciler,
	queries *engine.Queries,
	hub *ws.Hub,
	webpushOptions *webpush.Options,
) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, machine, reconciler, queries, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "emergency gate monitoring")
	})
	r.GET("/ws", gin.WrapF(hub.HandleUpgrade))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/report", handler.PostReport)

		api.GET("/doors/status", caching, handler.GetDoorStatuses)
		api.GET("/doors/:door_id/openings", caching, handler.GetDoorOpenings)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
