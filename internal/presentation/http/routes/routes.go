package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/config"
	"github.com/opentill/terminal/internal/presentation/http/handler"
	"github.com/opentill/terminal/internal/presentation/http/middleware"
	"github.com/opentill/terminal/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth    *handler.AuthHandler
	Sale    *handler.SaleHandler
	Order   *handler.OrderHandler
	Catalog *handler.CatalogHandler
	Status  *handler.StatusHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Tokens *utils.TokenManager
	Cfg    *config.Config
	Log    zerolog.Logger
}

// Setup creates the Gin router for the loopback API and registers all
// routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Log))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Auth.Login)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Tokens))

		rateLimiter := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration),
			BurstSize:         deps.Cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h)
	}

	return router
}

func registerProtectedRoutes(g *gin.RouterGroup, h *Handlers) {
	g.POST("/auth/logout", h.Auth.Logout)

	sales := g.Group("/sales")
	{
		sales.POST("/compute", h.Sale.Compute)
		sales.POST("", h.Sale.Create)
		sales.GET("", h.Sale.List)
		sales.GET("/:ref", h.Sale.Get)
		sales.POST("/:ref/void", h.Sale.Void)
		sales.POST("/:ref/notes", h.Sale.UpdateNotes)
		sales.POST("/:ref/receipt", h.Sale.Receipt)
	}

	orders := g.Group("/orders")
	{
		orders.GET("/open", h.Order.Open)
		orders.POST("/:ref/received", h.Order.MarkReceived)
		orders.POST("/:ref/remove", h.Order.Remove)
	}

	g.GET("/items", h.Catalog.Items)
	g.GET("/customers", h.Catalog.Customers)
	g.GET("/taxrules", h.Catalog.TaxRules)

	g.GET("/status", h.Status.Get)
	g.POST("/status/offline", h.Status.ForceOffline)
	g.POST("/status/decommission", h.Status.Decommission)
}
