package routes

import (
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAnalyticsRoutes sets up dispatcher-facing fleet analytics routes
func SetupAnalyticsRoutes(r *gin.RouterGroup, analyticsHandler *handlers.AnalyticsHandler, jwtSecret string) {
	analytics := r.Group("/analytics")
	analytics.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(middleware.RoleDispatcher))
	{
		analytics.GET("/fleet", analyticsHandler.FleetSnapshot)
	}
}
