package validators

import (
	"errors"
	"strings"

	"lifeline/internal/models"
	"lifeline/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("blood_type", validateBloodType)
	validate.RegisterValidation("latitude", validateLatitude)
	validate.RegisterValidation("longitude", validateLongitude)
	validate.RegisterValidation("ambulance_type", validateAmbulanceType)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidateStruct runs tag validation and flattens failures into a
// field -> message map for the error envelope.
func ValidateStruct(s interface{}) map[string]string {
	if err := validate.Struct(s); err != nil {
		out := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				out[strings.ToLower(fe.Field())] = messageFor(fe)
			}
			return out
		}
		out["_"] = err.Error()
		return out
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "object_id":
		return "must be a valid object ID"
	case "blood_type":
		return "must be a valid ABO/Rh blood type"
	case "latitude":
		return "must be between -90 and 90"
	case "longitude":
		return "must be between -180 and 180"
	case "ambulance_type":
		return "must be ALS or BLS"
	case "min":
		return "is below the minimum " + fe.Param()
	case "max":
		return "exceeds the maximum " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func validateObjectID(fl validator.FieldLevel) bool {
	_, err := primitive.ObjectIDFromHex(fl.Field().String())
	return err == nil
}

func validateBloodType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.ValidBloodType(models.BloodType(value))
}

func validateLatitude(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90 && lat <= 90
}

func validateLongitude(fl validator.FieldLevel) bool {
	lng := fl.Field().Float()
	return lng >= -180 && lng <= 180
}

func validateAmbulanceType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" ||
		value == string(models.AmbulanceTypeALS) ||
		value == string(models.AmbulanceTypeBLS)
}

// ValidateCoordinatePair checks a lat/lng pair outside struct tags.
func ValidateCoordinatePair(lat, lng float64) bool {
	return utils.IsValidCoordinates(lat, lng)
}
