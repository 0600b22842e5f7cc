package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"push-relay-backend/config"
	"push-relay-backend/internal/dispatch"
	"push-relay-backend/internal/mw"
	"push-relay-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, d *dispatch.Dispatcher, cfg *config.Config) *gin.Engine {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	handler := NewHandler(s, d, cfg.Dispatch.MQTTBrokerAddress)

	rateLimiter := mw.RateLimiter(
		rate.Limit(cfg.Server.RateLimitPerSec),
		cfg.Server.RateLimitBurst,
		func(c *gin.Context) { abortWith(c, errRateLimited) },
	)
	r.Use(rateLimiter)

	// The broker address is static per process, so it can be cached.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.POST("/service", handler.CreateService)
	r.GET("/service", handler.GetService)
	r.PATCH("/service", handler.UpdateService)
	r.DELETE("/service", handler.DeleteService)

	r.POST("/subscription", handler.Subscribe)
	r.GET("/subscription", handler.ListSubscriptions)
	r.DELETE("/subscription", handler.Unsubscribe)

	r.POST("/message", handler.PublishMessage)
	r.GET("/message", handler.ReadMessages)
	r.DELETE("/message", handler.MarkRead)

	r.POST("/gcm", handler.RegisterGateway)
	r.DELETE("/gcm", handler.UnregisterGateway)

	r.POST("/mqtt", handler.RegisterMqtt)
	r.DELETE("/mqtt", handler.UnregisterMqtt)
	r.GET("/mqtt", caching, handler.GetBrokerAddress)

	r.POST("/webpush", handler.RegisterWebPush)
	r.DELETE("/webpush", handler.UnregisterWebPush)

	return r
}
