package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IncidentStatus string
type IncidentSeverity string

const (
	IncidentStatusPending   IncidentStatus = "pending"
	IncidentStatusAssigned  IncidentStatus = "assigned"
	IncidentStatusPickedUp  IncidentStatus = "picked_up"
	IncidentStatusResolved  IncidentStatus = "resolved"
	IncidentStatusCancelled IncidentStatus = "cancelled"

	SeverityNone   IncidentSeverity = "none"
	SeverityLow    IncidentSeverity = "low"
	SeverityMedium IncidentSeverity = "medium"
	SeverityHigh   IncidentSeverity = "high"
)

type Incident struct {
	ID                    primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Title                 string              `json:"title" bson:"title"`
	Description           string              `json:"description" bson:"description"`
	Location              Location            `json:"location" bson:"location" validate:"required"`
	Status                IncidentStatus      `json:"status" bson:"status" default:"pending"`
	Severity              IncidentSeverity    `json:"severity" bson:"severity"`
	Analysis              string              `json:"analysis,omitempty" bson:"analysis,omitempty"`
	RecommendedAmbulance  AmbulanceType       `json:"recommended_ambulance" bson:"recommended_ambulance"`
	InjuryType            string              `json:"injury_type" bson:"injury_type"`
	BloodType             BloodType           `json:"blood_type,omitempty" bson:"blood_type,omitempty"`
	UnitsNeeded           float64             `json:"units_needed" bson:"units_needed"`
	Casualties            []Casualty          `json:"casualties,omitempty" bson:"casualties,omitempty"`
	DestinationHospitalID *primitive.ObjectID `json:"destination_hospital_id" bson:"destination_hospital_id"`
	AssignedAmbulanceID   *primitive.ObjectID `json:"assigned_ambulance_id" bson:"assigned_ambulance_id"`
	ReportedBy            string              `json:"reported_by,omitempty" bson:"reported_by,omitempty"`
	CreatedAt             time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at" bson:"updated_at"`
	ResolvedAt            *time.Time          `json:"resolved_at" bson:"resolved_at"`
}

// Casualty captures on-scene triage data for one victim. The first
// casualty's attributes drive the hospital match for the transport leg.
type Casualty struct {
	BloodType     BloodType        `json:"blood_type,omitempty" bson:"blood_type,omitempty"`
	RequiredUnits float64          `json:"required_units" bson:"required_units"`
	Severity      IncidentSeverity `json:"severity,omitempty" bson:"severity,omitempty"`
	InjuryType    string           `json:"injury_type,omitempty" bson:"injury_type,omitempty"`
}

// Active reports whether the incident still needs a responding unit or
// is being worked.
func (i *Incident) Active() bool {
	return i.Status == IncidentStatusPending ||
		i.Status == IncidentStatusAssigned ||
		i.Status == IncidentStatusPickedUp
}
