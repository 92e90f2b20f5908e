package handlers

import (
	"errors"
	"net/http"

	"lifeline/internal/models"
	"lifeline/internal/services"
	"lifeline/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HospitalHandler struct {
	hospitalService *services.HospitalService
}

func NewHospitalHandler(hospitalService *services.HospitalService) *HospitalHandler {
	return &HospitalHandler{
		hospitalService: hospitalService,
	}
}

// RegisterHospital adds a hospital to the registry.
func (h *HospitalHandler) RegisterHospital(c *gin.Context) {
	var hospital models.Hospital
	if err := c.ShouldBindJSON(&hospital); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.hospitalService.Create(c.Request.Context(), &hospital); err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.ValidationErrorResponse(c, map[string]string{"hospital": err.Error()})
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register hospital: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "Hospital registered", hospital)
}

// GetHospital returns one hospital by id.
func (h *HospitalHandler) GetHospital(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid hospital ID")
		return
	}

	hospital, err := h.hospitalService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Hospital")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Hospital retrieved", hospital)
}

// ListHospitals returns all hospitals, or only available ones.
func (h *HospitalHandler) ListHospitals(c *gin.Context) {
	onlyAvailable := c.Query("available") == "true"

	hospitals, err := h.hospitalService.List(c.Request.Context(), onlyAvailable)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Hospitals retrieved", hospitals)
}

// UpdateHospital applies partial updates (beds, inventory, staff).
func (h *HospitalHandler) UpdateHospital(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid hospital ID")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	hospital, err := h.hospitalService.Update(c.Request.Context(), id, updates)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Hospital")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Hospital updated", hospital)
}

type availabilityBody struct {
	Available *bool `json:"available" binding:"required"`
}

// SetAvailability toggles whether the hospital takes new casualties.
func (h *HospitalHandler) SetAvailability(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid hospital ID")
		return
	}

	var body availabilityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.hospitalService.SetAvailability(c.Request.Context(), id, *body.Available); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Hospital")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Availability updated", gin.H{"available": *body.Available})
}

// IncomingBoard lists casualties currently headed to the hospital.
func (h *HospitalHandler) IncomingBoard(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid hospital ID")
		return
	}

	incidents, err := h.hospitalService.IncomingBoard(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Hospital")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Incoming incidents retrieved", incidents)
}

type bloodAlertRequestBody struct {
	BloodType models.BloodType `json:"blood_type" binding:"required"`
	Units     float64          `json:"units" binding:"required"`
}

// RaiseBloodAlert files a transfer request with the nearest hospital.
func (h *HospitalHandler) RaiseBloodAlert(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid hospital ID")
		return
	}

	var body bloodAlertRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	alert, err := h.hospitalService.RaiseBloodAlert(c.Request.Context(), id, body.BloodType, body.Units)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Hospital")
		case errors.Is(err, services.ErrValidation):
			utils.ValidationErrorResponse(c, map[string]string{"request": err.Error()})
		case errors.Is(err, services.ErrNoCandidates):
			utils.ErrorResponse(c, http.StatusNotFound, "NO_CANDIDATES", "No other hospital to alert")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.CreatedResponse(c, "Blood alert raised", alert)
}

// ListBloodAlerts returns the alerts filed against this hospital.
func (h *HospitalHandler) ListBloodAlerts(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid hospital ID")
		return
	}

	alerts, err := h.hospitalService.ListBloodAlerts(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Hospital")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Blood alerts retrieved", alerts)
}

type bloodAlertResponseBody struct {
	Accept bool   `json:"accept"`
	Reason string `json:"reason,omitempty"`
}

// RespondBloodAlert answers a transfer request sent to this hospital.
func (h *HospitalHandler) RespondBloodAlert(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid hospital ID")
		return
	}
	alertID := c.Param("alertId")

	var body bloodAlertResponseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	alert, err := h.hospitalService.RespondBloodAlert(c.Request.Context(), id, alertID, body.Accept, body.Reason)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Blood alert")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Blood alert response recorded", alert)
}
