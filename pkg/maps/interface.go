package maps

import "context"

// Provider is the routing RPC surface the dispatch core depends on.
// Every method must be called with a bounded-timeout context; callers
// own the fallback when a call fails.
type Provider interface {
	// GetRoute returns the driving route between two points.
	GetRoute(ctx context.Context, origin, destination Location) (*Route, error)
	// TravelTimes returns the driving duration in seconds from one
	// origin to each destination, index aligned with destinations. A
	// negative entry means the matrix had no answer for that pair.
	TravelTimes(ctx context.Context, origin Location, destinations []Location) ([]int, error)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Route struct {
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds int        `json:"duration_seconds"`
	Geometry        []Location `json:"geometry"`
}
