package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/utils"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.CORSMiddleware(cfg.CORSOrigin))
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())
	router.Use(utils.MetricsMiddleware())

	// Session cookie carries the OAuth state between login and callback
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		MaxAge:   60 * 10,
		Path:     "/",
		Secure:   cfg.IsProduction(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("tourguider", store))

	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		initPublicRoutes(api, cfg)
		initUserRoutes(api)
		initAdminRoutes(api)
	}

	return router
}

func healthCheck(c *gin.Context) {
	dbStatus := "up"
	if config.DB == nil {
		dbStatus = "not configured"
	} else if sqlDB, err := config.DB.DB(); err != nil {
		dbStatus = "down"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "down"
		}
	}

	status := http.StatusOK
	if dbStatus == "down" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":    map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
