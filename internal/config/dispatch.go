package config

import (
	"time"
)

// ArrivalConfirmation policies for the transporting -> at_hospital
// transition. Pickup is always proximity triggered; drop-off defaults
// to a manual confirmation from the crew.
const (
	ArrivalConfirmManual    = "manual"
	ArrivalConfirmProximity = "proximity"
)

type DispatchConfig struct {
	SearchRadiusKm          float64       `yaml:"search_radius_km"`
	NearestK                int           `yaml:"nearest_k"`
	NotifyCeilingKm         float64       `yaml:"notify_ceiling_km"`
	ArrivalProximityMeters  float64       `yaml:"arrival_proximity_meters"`
	ArrivalConfirmation     string        `yaml:"arrival_confirmation"`
	GeoQueryTimeout         time.Duration `yaml:"geo_query_timeout"`
	SnapshotRefreshInterval time.Duration `yaml:"snapshot_refresh_interval"`
}

func loadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		SearchRadiusKm:          getEnvAsFloat64("DISPATCH_SEARCH_RADIUS_KM", 50),
		NearestK:                getEnvAsInt("DISPATCH_NEAREST_K", 5),
		NotifyCeilingKm:         getEnvAsFloat64("DISPATCH_NOTIFY_CEILING_KM", 10),
		ArrivalProximityMeters:  getEnvAsFloat64("DISPATCH_ARRIVAL_PROXIMITY_METERS", 50),
		ArrivalConfirmation:     getEnv("DISPATCH_ARRIVAL_CONFIRMATION", ArrivalConfirmManual),
		GeoQueryTimeout:         getEnvAsDuration("DISPATCH_GEO_QUERY_TIMEOUT", 3*time.Second),
		SnapshotRefreshInterval: getEnvAsDuration("DISPATCH_SNAPSHOT_REFRESH_INTERVAL", 30*time.Second),
	}
}
