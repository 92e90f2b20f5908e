package config

import (
	"time"
)

type MapsConfig struct {
	Provider       string        `yaml:"provider"`
	APIKey         string        `yaml:"api_key"`
	RoutingTimeout time.Duration `yaml:"routing_timeout"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider:       getEnv("MAPS_PROVIDER", "google"),
		APIKey:         getEnv("GOOGLE_MAPS_API_KEY", ""),
		RoutingTimeout: getEnvAsDuration("MAPS_ROUTING_TIMEOUT", 5*time.Second),
	}
}
