package utils

import "time"

// Application constants
const (
	AppName    = "Lifeline"
	AppVersion = "1.0.0"

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Dispatch constants
	DefaultSearchRadiusKm    = 50.0  // candidate pool ceiling for matching
	MaxSearchRadiusKm        = 100.0
	AmbulanceNotifyCeilingKm = 10.0 // beyond this a unit is listed but not paged
	ArrivalProximityMeters   = 50.0 // dispatched -> on_scene trigger
	DefaultNearestK          = 5

	// Upstream call budgets
	GeoQueryTimeout   = 3 * time.Second
	RoutingTimeout    = 5 * time.Second
	ClassifierTimeout = 20 * time.Second

	// Location staleness
	LocationUpdateInterval = 15 * time.Second
	LocationStaleAfter     = 2 * time.Minute

	// Routing fallback speed: distance_meters / 16.6 approximates a
	// 60 km/h duration in seconds when the matrix call fails.
	FallbackSpeedMetersPerSec = 16.6
)

// Error messages
const (
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized access"
	ErrForbidden        = "Access forbidden"
)

// Redis key for the live ambulance geo index.
const GeoKeyAmbulances = "geo:ambulances"

// Channel naming for the dispatch fan-out. One channel per entity.
const (
	ChannelHospitalPrefix  = "hospital-"
	ChannelAmbulancePrefix = "ambulance-"
	ChannelGlobal          = "dispatch-global"
)

func HospitalChannel(id string) string {
	return ChannelHospitalPrefix + id
}

func AmbulanceChannel(id string) string {
	return ChannelAmbulancePrefix + id
}
