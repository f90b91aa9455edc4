package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cto-inventory-backend/config"
	"cto-inventory-backend/internal/mw"
	"cto-inventory-backend/internal/store"
)

// NewRouter creates and configures a new Gin router. alerts and
// webpushOptions may be nil.
func NewRouter(cfg config.ServerConfig, s store.Store, alerts AlertDispatcher, webpushOptions *webpush.Options, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	registerValidations()

	r := gin.New()
	r.Use(mw.RequestLogger(log), gin.Recovery(), mw.CORS(cfg.CORSOrigins))

	handler := NewHandler(s, alerts, webpushOptions, log)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, mw.ClientKey(cfg.RequestIPHeader))
	responses := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	caching := responses.Cache()

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter, responses.Invalidate())
	{
		ctos := api.Group("/ctos")
		ctos.POST("", handler.CreateBox)
		ctos.GET("", caching, handler.ListBoxes)
		ctos.GET("/occupancy-stats", caching, handler.GetOccupancyStats)
		ctos.GET("/occupancy-stats/export", handler.ExportOccupancyStats)
		ctos.GET("/:id", caching, handler.GetBox)
		ctos.PATCH("/:id", handler.PatchBox)
		ctos.DELETE("/:id", handler.DeleteBox)

		conns := api.Group("/client-connections")
		conns.POST("", handler.CreateConnection)
		conns.GET("", caching, handler.ListConnections)
		conns.GET("/search/contract/:contractId", caching, handler.FindByContract)
		conns.GET("/search/onu/:onuSerial", caching, handler.FindByOnuSerial)
		conns.GET("/ports-status/:ctoId", caching, handler.GetPortsStatus)
		conns.GET("/:id", caching, handler.GetConnection)
		conns.PATCH("/:id", handler.PatchConnection)
		conns.DELETE("/:id", handler.DeleteConnection)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
