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

type IncidentHandler struct {
	dispatchService *services.DispatchService
}

func NewIncidentHandler(dispatchService *services.DispatchService) *IncidentHandler {
	return &IncidentHandler{
		dispatchService: dispatchService,
	}
}

// ReportIncident ingests an emergency report and runs the dispatch
// pipeline.
func (h *IncidentHandler) ReportIncident(c *gin.Context) {
	var request services.ReportRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	outcome, err := h.dispatchService.ReportIncident(c.Request.Context(), &request)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNonEmergency):
			analysis := ""
			if outcome != nil && outcome.Assessment != nil {
				analysis = outcome.Assessment.Analysis
			}
			utils.RejectionResponse(c, analysis)
		case errors.Is(err, services.ErrValidation):
			utils.ValidationErrorResponse(c, map[string]string{"request": err.Error()})
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "DISPATCH_FAILED", "Failed to process report: "+err.Error())
		}
		return
	}

	utils.CreatedResponse(c, "Incident reported", outcome)
}

// GetIncident returns one incident by id.
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid incident ID")
		return
	}

	incident, err := h.dispatchService.GetIncident(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Incident")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Incident retrieved", incident)
}

// ListIncidents returns incidents, optionally filtered by status.
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	status := models.IncidentStatus(c.Query("status"))

	incidents, err := h.dispatchService.ListIncidents(c.Request.Context(), status, 0)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Incidents retrieved", incidents)
}

// PendingIncidents is the claim feed for idle crews.
func (h *IncidentHandler) PendingIncidents(c *gin.Context) {
	incidents, err := h.dispatchService.PendingIncidents(c.Request.Context())
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Pending incidents retrieved", incidents)
}

// CancelIncident aborts an active incident.
func (h *IncidentHandler) CancelIncident(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid incident ID")
		return
	}

	incident, err := h.dispatchService.CancelIncident(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Incident")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.ConflictResponse(c, "INVALID_TRANSITION", "Incident is no longer active")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Incident cancelled", incident)
}

// UpdateIncident patches descriptive incident fields.
func (h *IncidentHandler) UpdateIncident(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid incident ID")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	incident, err := h.dispatchService.UpdateIncident(c.Request.Context(), id, updates)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Incident")
		case errors.Is(err, services.ErrValidation):
			utils.ValidationErrorResponse(c, map[string]string{"updates": err.Error()})
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Incident updated", incident)
}

// DeleteIncident removes a closed incident record.
func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid incident ID")
		return
	}

	if err := h.dispatchService.DeleteIncident(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Incident")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.ConflictResponse(c, "INVALID_TRANSITION", "Cancel the incident before deleting it")
		default:
			utils.InternalServerErrorResponse(c)
		}
		return
	}

	utils.SuccessResponse(c, "Incident deleted", nil)
}
