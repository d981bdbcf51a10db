package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/tapsafe/auth-service/internal/transport/http/handler"
	"github.com/tapsafe/auth-service/internal/transport/http/middleware"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, triggerHandler *handler.TriggerHandler, triggerKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	// Public login surface
	auth := r.Group("/auth")
	auth.POST("/magic-link", authHandler.RequestMagicLink)
	auth.GET("/verify", authHandler.Verify)

	// Extension points for the identity-provider host
	triggers := r.Group("/triggers", middleware.TriggerAuth(triggerKey))
	triggers.POST("/define-challenge", triggerHandler.Define)
	triggers.POST("/create-challenge", triggerHandler.Create)
	triggers.POST("/verify-challenge", triggerHandler.Verify)

	return r
}
