package routes

import (
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAmbulanceRoutes sets up routes for fleet management and mission flow
func SetupAmbulanceRoutes(r *gin.RouterGroup, ambulanceHandler *handlers.AmbulanceHandler, jwtSecret string) {
	ambulances := r.Group("/ambulances")
	ambulances.Use(middleware.AuthRequired(jwtSecret))
	{
		ambulances.GET("", ambulanceHandler.ListAmbulances)
		ambulances.GET("/nearby", ambulanceHandler.NearbyIdle)
		ambulances.GET("/:id", ambulanceHandler.GetAmbulance)
	}

	// Fleet registration is a dispatcher operation
	admin := r.Group("/ambulances")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(middleware.RoleDispatcher))
	{
		admin.POST("", ambulanceHandler.RegisterAmbulance)
	}

	// Mission routes driven by the ambulance crew
	missions := r.Group("/ambulances")
	missions.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(middleware.RoleAmbulance, middleware.RoleDispatcher))
	{
		missions.PUT("/:id/location", ambulanceHandler.UpdateLocation)
		missions.POST("/:id/claim/:incidentId", ambulanceHandler.ClaimIncident)
		missions.POST("/:id/depart", ambulanceHandler.Depart)
		missions.POST("/:id/arrive", ambulanceHandler.ConfirmArrival)
		missions.POST("/:id/complete", ambulanceHandler.CompleteMission)
	}
}
