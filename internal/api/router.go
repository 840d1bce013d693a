package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"parking-sign-backend/internal/mw"
	"parking-sign-backend/internal/store"
)

// NewRouter creates and configures a new Gin router. cacheTTL bounds how
// long viewport responses are served from memory.
func NewRouter(s store.Store, opts Options, cacheTTL time.Duration) *gin.Engine {
	r := gin.Default()

	if opts.SpotCache == nil {
		opts.SpotCache = cache.New(cacheTTL, 2*cacheTTL)
	}
	caching := mw.Cache(opts.SpotCache, cacheTTL)
	handler := NewHandler(s, opts)

	r.GET("/healthz", handler.Healthz)

	api := r.Group("/api")
	{
		api.POST("/parking/plates", handler.UploadParkingPlate)
		api.GET("/parking/spots", caching, handler.GetParkingSpots)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
