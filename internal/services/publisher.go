package services

import (
	"context"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"
	"lifeline/pkg/websocket"
)

// EventPublisher delivers dispatch events to the per-entity channels.
// Delivery is at-most-once: a slow or absent subscriber misses the
// event, it is never retried.
type EventPublisher interface {
	PublishToHospital(ctx context.Context, hospitalID string, event *models.DispatchEvent) error
	PublishToAmbulance(ctx context.Context, ambulanceID string, event *models.DispatchEvent) error
	PublishGlobal(ctx context.Context, event *models.DispatchEvent) error
}

type hubPublisher struct {
	hub    *websocket.Hub
	cache  CacheService
	logger *logger.Logger
}

// NewEventPublisher fans out over the in-process websocket hub and
// mirrors every event on Redis pub/sub so subscribers on other nodes
// see the same stream.
func NewEventPublisher(hub *websocket.Hub, cacheService CacheService, log *logger.Logger) EventPublisher {
	return &hubPublisher{
		hub:    hub,
		cache:  cacheService,
		logger: log,
	}
}

func (p *hubPublisher) PublishToHospital(ctx context.Context, hospitalID string, event *models.DispatchEvent) error {
	return p.publish(ctx, utils.HospitalChannel(hospitalID), event)
}

func (p *hubPublisher) PublishToAmbulance(ctx context.Context, ambulanceID string, event *models.DispatchEvent) error {
	return p.publish(ctx, utils.AmbulanceChannel(ambulanceID), event)
}

func (p *hubPublisher) PublishGlobal(ctx context.Context, event *models.DispatchEvent) error {
	return p.publish(ctx, utils.ChannelGlobal, event)
}

func (p *hubPublisher) publish(ctx context.Context, channel string, event *models.DispatchEvent) error {
	event.Channel = channel
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	msg := websocket.Message{
		Type:      string(event.Type),
		Channel:   channel,
		Degraded:  event.Degraded,
		Timestamp: event.Timestamp.Unix(),
		Data:      event,
	}

	if channel == utils.ChannelGlobal {
		p.hub.PublishGlobal(msg)
	} else {
		p.hub.Publish(channel, msg)
	}

	if p.cache != nil {
		if err := p.cache.Publish(ctx, channel, msg); err != nil {
			p.logger.WithError(err).WithField("channel", channel).Warn("Failed to mirror event to redis")
		}
	}

	p.logger.LogDispatchEvent(string(event.Type), channel, event.Degraded, nil)
	return nil
}
