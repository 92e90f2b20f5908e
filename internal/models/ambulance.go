package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceStatus string
type AmbulanceType string

const (
	AmbulanceStatusIdle         AmbulanceStatus = "idle"
	AmbulanceStatusDispatched   AmbulanceStatus = "dispatched"
	AmbulanceStatusOnScene      AmbulanceStatus = "on_scene"
	AmbulanceStatusTransporting AmbulanceStatus = "transporting"
	AmbulanceStatusAtHospital   AmbulanceStatus = "at_hospital"

	AmbulanceTypeALS AmbulanceType = "ALS"
	AmbulanceTypeBLS AmbulanceType = "BLS"
)

type Ambulance struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PlateNumber        string              `json:"plate_number" bson:"plate_number" validate:"required"`
	CallSign           string              `json:"call_sign" bson:"call_sign"`
	Type               AmbulanceType       `json:"type" bson:"type" default:"BLS"`
	Status             AmbulanceStatus     `json:"status" bson:"status" default:"idle"`
	CurrentLocation    *Location           `json:"current_location" bson:"current_location"`
	LastLocationUpdate *time.Time          `json:"last_location_update" bson:"last_location_update"`
	CurrentIncidentID  *primitive.ObjectID `json:"current_incident_id" bson:"current_incident_id"`
	CurrentHospitalID  *primitive.ObjectID `json:"current_hospital_id" bson:"current_hospital_id"`
	HomeHospitalID     *primitive.ObjectID `json:"home_hospital_id" bson:"home_hospital_id"`
	// Version guards concurrent status writes. Every state transition
	// increments it through a conditional update.
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// OnMission reports whether the unit currently holds an active mission.
func (a *Ambulance) OnMission() bool {
	return a.Status != AmbulanceStatusIdle
}
