package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BloodType string

const (
	BloodTypeAPositive  BloodType = "A+"
	BloodTypeANegative  BloodType = "A-"
	BloodTypeBPositive  BloodType = "B+"
	BloodTypeBNegative  BloodType = "B-"
	BloodTypeABPositive BloodType = "AB+"
	BloodTypeABNegative BloodType = "AB-"
	BloodTypeOPositive  BloodType = "O+"
	BloodTypeONegative  BloodType = "O-"
)

func ValidBloodType(bt BloodType) bool {
	switch bt {
	case BloodTypeAPositive, BloodTypeANegative,
		BloodTypeBPositive, BloodTypeBNegative,
		BloodTypeABPositive, BloodTypeABNegative,
		BloodTypeOPositive, BloodTypeONegative:
		return true
	}
	return false
}

type Hospital struct {
	ID             primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	Name           string                `json:"name" bson:"name" validate:"required"`
	Address        string                `json:"address" bson:"address"`
	Phone          string                `json:"phone" bson:"phone"`
	Location       Location              `json:"location" bson:"location" validate:"required"`
	BedsAvailable  int                   `json:"beds_available" bson:"beds_available"`
	BloodInventory map[BloodType]float64 `json:"blood_inventory" bson:"blood_inventory"`
	StaffCount     map[string]int        `json:"staff_count" bson:"staff_count"`
	IsAvailable    bool                  `json:"is_available" bson:"is_available" default:"true"`
	BloodAlerts    []BloodAlert          `json:"blood_alerts,omitempty" bson:"blood_alerts,omitempty"`
	CreatedAt      time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at" bson:"updated_at"`
}

// AvailableUnits returns the stocked units for a blood type, zero when
// the type has no inventory entry.
func (h *Hospital) AvailableUnits(bt BloodType) float64 {
	if h.BloodInventory == nil {
		return 0
	}
	return h.BloodInventory[bt]
}

type BloodAlertStatus string

const (
	BloodAlertStatusPending  BloodAlertStatus = "pending"
	BloodAlertStatusAccepted BloodAlertStatus = "accepted"
	BloodAlertStatusRejected BloodAlertStatus = "rejected"
)

// BloodAlert is a transfer request from a hospital that is short on a
// blood type, delivered to its nearest neighbor hospital.
type BloodAlert struct {
	ID                      string             `json:"id" bson:"id"`
	RequestingHospitalID    primitive.ObjectID `json:"requesting_hospital_id" bson:"requesting_hospital_id"`
	RequestingHospitalName  string             `json:"requesting_hospital_name" bson:"requesting_hospital_name"`
	RequestingHospitalPhone string             `json:"requesting_hospital_phone" bson:"requesting_hospital_phone"`
	BloodType               BloodType          `json:"blood_type" bson:"blood_type"`
	UnitsRequested          float64            `json:"units_requested" bson:"units_requested"`
	Urgency                 string             `json:"urgency" bson:"urgency" default:"urgent"`
	Status                  BloodAlertStatus   `json:"status" bson:"status" default:"pending"`
	DistanceKm              float64            `json:"distance_km" bson:"distance_km"`
	CreatedAt               time.Time          `json:"created_at" bson:"created_at"`
	RespondedAt             *time.Time         `json:"responded_at" bson:"responded_at"`
	ResponseReason          string             `json:"response_reason,omitempty" bson:"response_reason,omitempty"`
}
