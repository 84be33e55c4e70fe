package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cityfix-service/internal/config"
	"cityfix-service/internal/http/middleware"
	"cityfix-service/internal/logger"
	"cityfix-service/internal/service"
)

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, metrics *service.MetricsService, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.RequestLogger(log))
	router.Use(middleware.Metrics(metrics))
	router.Use(cors.New(corsConfig(cfg.HTTP.AllowedOrigins)))
	router.MaxMultipartMemory = cfg.Media.MaxFileSize

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	handler.Register(router, authMiddleware)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
