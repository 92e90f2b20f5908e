package handlers

import (
	"errors"
	"net/http"

	"lifeline/internal/models"
	"lifeline/internal/services"
	"lifeline/internal/utils"
	"lifeline/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MatchHandler struct {
	matchingService *services.MatchingService
}

func NewMatchHandler(matchingService *services.MatchingService) *MatchHandler {
	return &MatchHandler{
		matchingService: matchingService,
	}
}

type matchRequestBody struct {
	Latitude    float64  `json:"latitude" validate:"latitude"`
	Longitude   float64  `json:"longitude" validate:"longitude"`
	InjuryType  string   `json:"injury_type,omitempty"`
	BloodType   string   `json:"blood_type,omitempty" validate:"blood_type"`
	UnitsNeeded float64  `json:"units_needed,omitempty" validate:"min=0"`
	ExcludeIDs  []string `json:"exclude_ids,omitempty"`
}

// MatchHospitals runs the full ranking for a casualty profile without
// creating an incident. Used by dispatchers for what-if queries and by
// crews re-planning a transport leg.
func (h *MatchHandler) MatchHospitals(c *gin.Context) {
	var body matchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if verrs := validators.ValidateStruct(&body); verrs != nil {
		utils.ValidationErrorResponse(c, verrs)
		return
	}

	excludeIDs := make([]primitive.ObjectID, 0, len(body.ExcludeIDs))
	for _, raw := range body.ExcludeIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			utils.ValidationErrorResponse(c, map[string]string{"exclude_ids": "contains an invalid object ID"})
			return
		}
		excludeIDs = append(excludeIDs, id)
	}

	results, err := h.matchingService.Match(c.Request.Context(), &models.MatchRequest{
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
		InjuryType:  body.InjuryType,
		BloodType:   models.BloodType(body.BloodType),
		UnitsNeeded: body.UnitsNeeded,
		ExcludeIDs:  excludeIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			utils.ValidationErrorResponse(c, map[string]string{"request": err.Error()})
		case errors.Is(err, services.ErrNoCandidates):
			utils.NotFoundResponse(c, "Matching hospital")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "MATCH_FAILED", "Failed to rank hospitals: "+err.Error())
		}
		return
	}

	utils.SuccessResponse(c, "Hospitals ranked", results)
}
