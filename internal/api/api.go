// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/droplink-app/droplink/internal/api/handlers"
	"github.com/droplink-app/droplink/internal/api/middleware"
	"github.com/droplink-app/droplink/internal/config"
	"github.com/droplink-app/droplink/internal/service"
)

type Services struct {
	Drops *service.DropService
	Store *config.Store
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		dropHandler := handlers.NewDropHandler(services.Drops)
		apiGroup.POST("/drops", dropHandler.CreateDrop)

		storageHandler := handlers.NewStorageHandler(services.Drops, services.Store)
		storageGroup := apiGroup.Group("/storage")
		{
			storageGroup.PUT("/config", storageHandler.SetConfig)
			storageGroup.DELETE("/config", storageHandler.ClearConfig)
			storageGroup.GET("/status", storageHandler.GetStatus)
			storageGroup.POST("/validate", storageHandler.ValidateCredentials)
		}

		settingsGroup := apiGroup.Group("/settings")
		{
			settingsGroup.GET("", storageHandler.GetSettings)
			settingsGroup.PUT("/demo-mode", storageHandler.SetDemoMode)
		}

		objectsGroup := apiGroup.Group("/objects")
		{
			objectsGroup.GET("/*key", storageHandler.GetObject)
			objectsGroup.DELETE("/*key", storageHandler.DeleteObject)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
