package models

import (
	"time"
)

type DispatchEventType string

const (
	// EventNewEmergency goes to the destination hospital's channel.
	EventNewEmergency DispatchEventType = "new_emergency"
	// EventEmergencyOffer goes to each ambulance channel within the
	// notification ceiling.
	EventEmergencyOffer DispatchEventType = "emergency_offer"
	// EventEmergencyBroadcast is the degraded global publication used
	// when no unit is close enough or the locator failed.
	EventEmergencyBroadcast DispatchEventType = "emergency_broadcast"
	// EventMissionUpdate tracks ambulance lifecycle transitions.
	EventMissionUpdate DispatchEventType = "mission_update"
	// EventBloodAlert notifies a hospital of an inbound transfer request.
	EventBloodAlert DispatchEventType = "blood_alert"
)

// DispatchEvent is the fire-and-forget message pushed to subscribed
// channels. Delivery is at most once; there is no queue and no replay.
type DispatchEvent struct {
	Type    DispatchEventType `json:"type"`
	Channel string            `json:"channel"`
	// Degraded marks a best-effort global broadcast so subscribers can
	// tell it apart from a targeted delivery.
	Degraded     bool                   `json:"degraded,omitempty"`
	Incident     *Incident              `json:"incident,omitempty"`
	MatchContext map[string]interface{} `json:"match_context,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}
