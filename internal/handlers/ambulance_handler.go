package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"lifeline/internal/models"
	"lifeline/internal/services"
	"lifeline/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceHandler struct {
	ambulanceService *services.AmbulanceService
	missionService   *services.MissionService
}

func NewAmbulanceHandler(ambulanceService *services.AmbulanceService, missionService *services.MissionService) *AmbulanceHandler {
	return &AmbulanceHandler{
		ambulanceService: ambulanceService,
		missionService:   missionService,
	}
}

// RegisterAmbulance adds a unit to the fleet.
func (h *AmbulanceHandler) RegisterAmbulance(c *gin.Context) {
	var ambulance models.Ambulance
	if err := c.ShouldBindJSON(&ambulance); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.ambulanceService.Register(c.Request.Context(), &ambulance); err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.ValidationErrorResponse(c, map[string]string{"ambulance": err.Error()})
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register ambulance: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "Ambulance registered", ambulance)
}

// GetAmbulance returns one unit by id.
func (h *AmbulanceHandler) GetAmbulance(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}

	ambulance, err := h.ambulanceService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Ambulance")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Ambulance retrieved", ambulance)
}

// ListAmbulances returns the whole fleet.
func (h *AmbulanceHandler) ListAmbulances(c *gin.Context) {
	ambulances, err := h.ambulanceService.List(c.Request.Context())
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Ambulances retrieved", ambulances)
}

// NearbyIdle lists the nearest idle units to a point.
func (h *AmbulanceHandler) NearbyIdle(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"latitude": "is required and must be a number"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"longitude": "is required and must be a number"})
		return
	}
	k, _ := strconv.Atoi(c.DefaultQuery("k", "0"))

	units, err := h.ambulanceService.NearbyIdle(c.Request.Context(), lat, lng, k)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.ValidationErrorResponse(c, map[string]string{"coordinates": "out of range"})
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Nearby units retrieved", units)
}

type locationUpdateBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpdateLocation records a position report; proximity transitions fire
// from here.
func (h *AmbulanceHandler) UpdateLocation(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}

	var body locationUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ambulance, err := h.missionService.UpdateLocation(c.Request.Context(), id, body.Latitude, body.Longitude)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Ambulance")
		case errors.Is(err, services.ErrValidation):
			utils.ValidationErrorResponse(c, map[string]string{"coordinates": "out of range"})
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Location updated", ambulance)
}

// ClaimIncident binds the unit to a pending incident; losers of the
// race get a structured conflict.
func (h *AmbulanceHandler) ClaimIncident(c *gin.Context) {
	ambulanceID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}
	incidentID, err := primitive.ObjectIDFromHex(c.Param("incidentId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid incident ID")
		return
	}

	ambulance, err := h.missionService.ClaimIncident(c.Request.Context(), ambulanceID, incidentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Ambulance or incident")
		case errors.Is(err, services.ErrAlreadyAssigned):
			utils.ConflictResponse(c, "ALREADY_ASSIGNED", "Incident was claimed by another unit")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Incident claimed", ambulance)
}

type departBody struct {
	Casualties []models.Casualty `json:"casualties,omitempty"`
}

// Depart moves an on-scene unit to transporting, optionally recording
// casualty triage data that re-picks the destination.
func (h *AmbulanceHandler) Depart(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}

	var body departBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ambulance, err := h.missionService.DepartForHospital(c.Request.Context(), id, body.Casualties)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Ambulance")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.ConflictResponse(c, "INVALID_TRANSITION", "Unit is not on scene")
		case errors.Is(err, services.ErrNoCandidates):
			utils.ConflictResponse(c, "NO_DESTINATION", "No destination hospital available for transport")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Transport started", ambulance)
}

// ConfirmArrival is the manual drop-off confirmation.
func (h *AmbulanceHandler) ConfirmArrival(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}

	ambulance, err := h.missionService.ConfirmArrival(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Ambulance")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.ConflictResponse(c, "INVALID_TRANSITION", "Unit is not transporting")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Arrival confirmed", ambulance)
}

// CompleteMission hands over and returns the unit to the pool.
func (h *AmbulanceHandler) CompleteMission(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}

	ambulance, err := h.missionService.CompleteMission(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Ambulance")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.ConflictResponse(c, "INVALID_TRANSITION", "Unit is not at a hospital")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Mission completed", ambulance)
}
