package routes

import (
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupIncidentRoutes sets up routes for emergency reporting and incident tracking
func SetupIncidentRoutes(r *gin.RouterGroup, incidentHandler *handlers.IncidentHandler, jwtSecret string) {
	// Public reporting route (citizens report without an account)
	r.POST("/incidents", incidentHandler.ReportIncident)

	// Protected incident routes (require authentication)
	incidents := r.Group("/incidents")
	incidents.Use(middleware.AuthRequired(jwtSecret))
	{
		incidents.GET("", incidentHandler.ListIncidents)
		incidents.GET("/pending", incidentHandler.PendingIncidents)
		incidents.GET("/:id", incidentHandler.GetIncident)
	}

	// Dispatcher-only incident controls
	control := r.Group("/incidents")
	control.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(middleware.RoleDispatcher))
	{
		control.POST("/:id/cancel", incidentHandler.CancelIncident)
		control.PATCH("/:id", incidentHandler.UpdateIncident)
		control.DELETE("/:id", incidentHandler.DeleteIncident)
	}
}

// SetupMatchRoutes sets up the standalone hospital matching route
func SetupMatchRoutes(r *gin.RouterGroup, matchHandler *handlers.MatchHandler, jwtSecret string) {
	match := r.Group("/match")
	match.Use(middleware.AuthRequired(jwtSecret))
	{
		match.POST("", matchHandler.MatchHospitals)
	}
}
