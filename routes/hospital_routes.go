package routes

import (
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupHospitalRoutes sets up routes for hospital registry and capacity updates
func SetupHospitalRoutes(r *gin.RouterGroup, hospitalHandler *handlers.HospitalHandler, jwtSecret string) {
	hospitals := r.Group("/hospitals")
	hospitals.Use(middleware.AuthRequired(jwtSecret))
	{
		hospitals.GET("", hospitalHandler.ListHospitals)
		hospitals.GET("/:id", hospitalHandler.GetHospital)
	}

	// Registration is a dispatcher operation
	admin := r.Group("/hospitals")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(middleware.RoleDispatcher))
	{
		admin.POST("", hospitalHandler.RegisterHospital)
	}

	// Capacity and alert routes driven by hospital staff
	staff := r.Group("/hospitals")
	staff.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(middleware.RoleHospital, middleware.RoleDispatcher))
	{
		staff.PATCH("/:id", hospitalHandler.UpdateHospital)
		staff.PUT("/:id/availability", hospitalHandler.SetAvailability)
		staff.GET("/:id/incoming", hospitalHandler.IncomingBoard)
		staff.POST("/:id/blood-alerts", hospitalHandler.RaiseBloodAlert)
		staff.GET("/:id/blood-alerts", hospitalHandler.ListBloodAlerts)
		staff.POST("/:id/blood-alerts/:alertId/respond", hospitalHandler.RespondBloodAlert)
	}
}
