package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codyseavey/cardcatalog/internal/api/handlers"
	"github.com/codyseavey/cardcatalog/internal/auth"
	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
	"github.com/codyseavey/cardcatalog/internal/services"
)

// Services bundles what the router serves.
type Services struct {
	Store       *database.Store
	Submissions *services.SubmissionService
	Reviews     *services.BundleReviewService
	Catalog     *services.CatalogSearchService
}

func SetupRouter(cfg *config.Config, svc Services, signer *auth.Signer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(zap.L()), requestMetrics())

	serveFrontend := cfg.Server.FrontendDistPath != "" && dirExists(cfg.Server.FrontendDistPath)

	// CORS configuration - allow configured origins or use local dev defaults
	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	bundleHandler := handlers.NewBundleHandler(svc.Submissions)
	collectionHandler := handlers.NewCollectionHandler(svc.Submissions)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
	reviewHandler := handlers.NewReviewHandler(svc.Reviews)
	limiter := newUserLimiter(cfg.RateLimit)

	api := router.Group("/api")
	api.Use(auth.Middleware(signer))
	{
		bundles := api.Group("/bundles")
		{
			bundles.POST("", limiter.middleware(), bundleHandler.SubmitBundle)
			bundles.GET("", bundleHandler.ListBundles)
		}
		api.GET("/provisional-cards", bundleHandler.ListProvisionalCards)
		api.POST("/resolve/preview", bundleHandler.PreviewResolution)
		api.GET("/collection", collectionHandler.GetCollection)
		api.GET("/catalog/:kind", catalogHandler.SearchCatalog)

		admin := api.Group("/admin")
		admin.Use(auth.RequireAdmin())
		{
			admin.GET("/bundles/pending", reviewHandler.ListPending)
			admin.GET("/bundles/:id", reviewHandler.GetBundleDiff)
			admin.POST("/bundles/:id/approve", reviewHandler.ApproveBundle)
			admin.POST("/bundles/:id/reject", reviewHandler.RejectBundle)
			admin.POST("/provisional-cards/:id/resolve-set", reviewHandler.ResolveSet)
			admin.POST("/provisional-cards/:id/resolve-series", reviewHandler.ResolveSeries)
			admin.POST("/provisional-cards/:id/resolve-color", reviewHandler.ResolveColor)
			admin.POST("/provisional-cards/:id/approve", reviewHandler.ApproveCard)
			admin.POST("/provisional-players/:id/resolve", reviewHandler.ResolvePlayer)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		if err := svc.Store.Ping(c.Request.Context()); err != nil {
			zap.L().Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Serve frontend static files
	if serveFrontend {
		frontendPath := cfg.Server.FrontendDistPath
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found", "kind": "not_found"})
				return
			}
			c.File(indexPath)
		})
	} else {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found", "kind": "not_found"})
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
