package api

import (
	"ticketboss/internal/handlers"
	"ticketboss/internal/metrics"
	"ticketboss/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions controls the optional parts of the router
type RouterOptions struct {
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	ResetEnabled bool
}

// NewRouter собирает gin роутер со всеми маршрутами
func NewRouter(h *handlers.Handlers, opts RouterOptions) *gin.Engine {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics(opts.Metrics))
	router.Use(middleware.Logger())

	router.GET("/", h.Welcome)
	registerReservationRoutes(router.Group(""), h, opts.ResetEnabled)

	// Same routes under /api
	api := router.Group("/api")
	api.GET("", h.Welcome)
	registerReservationRoutes(api, h, opts.ResetEnabled)

	router.GET("/health", h.Health)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

func registerReservationRoutes(g *gin.RouterGroup, h *handlers.Handlers, resetEnabled bool) {
	reservations := g.Group("/reservations")
	{
		reservations.POST("", h.Reserve)
		reservations.GET("", h.Summary)
		reservations.DELETE("/:reservationId", h.CancelReservation)
	}

	if resetEnabled {
		g.POST("/admin/reset", h.ResetEvent)
	}
}
