package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) GetRoute(ctx context.Context, origin, destination Location) (*Route, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude),
		Destination: fmt.Sprintf("%f,%f", destination.Latitude, destination.Longitude),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route between origin and destination")
	}

	leg := routes[0].Legs[0]

	points, err := routes[0].OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode route polyline: %w", err)
	}

	geometry := make([]Location, len(points))
	for i, p := range points {
		geometry[i] = Location{Latitude: p.Lat, Longitude: p.Lng}
	}

	return &Route{
		DistanceMeters:  float64(leg.Distance.Meters),
		DurationSeconds: int(leg.Duration.Seconds()),
		Geometry:        geometry,
	}, nil
}

func (g *GoogleMapsProvider) TravelTimes(ctx context.Context, origin Location, destinations []Location) ([]int, error) {
	if len(destinations) == 0 {
		return nil, nil
	}

	dests := make([]string, len(destinations))
	for i, d := range destinations {
		dests[i] = fmt.Sprintf("%f,%f", d.Latitude, d.Longitude)
	}

	req := &maps.DistanceMatrixRequest{
		Origins:      []string{fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude)},
		Destinations: dests,
		Mode:         maps.TravelModeDriving,
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}
	if len(resp.Rows) == 0 {
		return nil, fmt.Errorf("empty distance matrix response")
	}

	durations := make([]int, len(destinations))
	for i, element := range resp.Rows[0].Elements {
		if i >= len(durations) {
			break
		}
		if element.Status != "OK" {
			durations[i] = -1
			continue
		}
		durations[i] = int(element.Duration.Seconds())
	}

	return durations, nil
}
