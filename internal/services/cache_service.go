package services

import (
	"context"
	"time"

	"lifeline/pkg/cache"

	"github.com/redis/go-redis/v9"
)

// CacheService is the slice of Redis the dispatch core uses: JSON
// snapshots, the live geo index of ambulance positions, and the
// pub/sub mirror of dispatch channels.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	GeoAdd(ctx context.Context, key, member string, lat, lng float64) error
	GeoRadius(ctx context.Context, key string, lat, lng, radiusKm float64, limit int) ([]GeoMember, error)
	GeoRemove(ctx context.Context, key, member string) error

	Publish(ctx context.Context, channel string, message interface{}) error
}

type GeoMember struct {
	Name       string
	DistanceKm float64
	Latitude   float64
	Longitude  float64
}

type redisCacheService struct {
	redis *cache.RedisCache
}

func NewCacheService(redisCache *cache.RedisCache) CacheService {
	return &redisCacheService{redis: redisCache}
}

func (s *redisCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.redis.Get(ctx, key, dest)
}

func (s *redisCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.redis.Set(ctx, key, value, expiration)
}

func (s *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	return s.redis.Delete(ctx, keys...)
}

func (s *redisCacheService) GeoAdd(ctx context.Context, key, member string, lat, lng float64) error {
	return s.redis.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      member,
		Latitude:  lat,
		Longitude: lng,
	})
}

func (s *redisCacheService) GeoRadius(ctx context.Context, key string, lat, lng, radiusKm float64, limit int) ([]GeoMember, error) {
	locations, err := s.redis.GeoRadius(ctx, key, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	})
	if err != nil {
		return nil, err
	}

	members := make([]GeoMember, len(locations))
	for i, loc := range locations {
		members[i] = GeoMember{
			Name:       loc.Name,
			DistanceKm: loc.Dist,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
		}
	}

	return members, nil
}

func (s *redisCacheService) GeoRemove(ctx context.Context, key, member string) error {
	return s.redis.GeoRemove(ctx, key, member)
}

func (s *redisCacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	return s.redis.Publish(ctx, channel, message)
}
