package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ad-studio/internal/handlers"
)

type RouterConfig struct {
	SessionHandler *handlers.SessionHandler
	UploadHandler  *handlers.UploadHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/uploads", cfg.UploadHandler.UploadImage)

		api.POST("/sessions", cfg.SessionHandler.CreateSession)
		api.GET("/sessions/:id", cfg.SessionHandler.GetSession)
		api.DELETE("/sessions/:id", cfg.SessionHandler.CloseSession)
		api.POST("/sessions/:id/finalize", cfg.SessionHandler.Finalize)

		api.PUT("/sessions/:id/scenes/:scene/prompt", cfg.SessionHandler.EditPrompt)
		api.PUT("/sessions/:id/scenes/:scene/selection", cfg.SessionHandler.SelectCandidate)
		api.POST("/sessions/:id/scenes/:scene/confirm", cfg.SessionHandler.Confirm)
		api.DELETE("/sessions/:id/scenes/:scene/confirm", cfg.SessionHandler.Unconfirm)
		api.POST("/sessions/:id/scenes/:scene/regenerate", cfg.SessionHandler.Regenerate)
	}

	return router
}
