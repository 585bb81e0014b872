package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event describes one workflow occurrence consumers (notification and UI
// systems outside this service) may react to.
type Event struct {
	Type       string    `json:"type"`
	TaskID     uint      `json:"task_id"`
	StudentID  uint      `json:"student_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Workflow event types.
const (
	EventSubmitted   = "submission.submitted"
	EventUnsubmitted = "submission.unsubmitted"
	EventReplaced    = "submission.replaced"
	EventGraded      = "submission.graded"
	EventTaskDeleted = "task.deleted"
)

// EventPublisher fans workflow events out to interested consumers. Publishing
// is always fire-and-forget; the workflow never fails because of it.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

type eventPublisher struct {
	redis   *redis.Client
	channel string
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewEventPublisher constructs a publisher over redis and NATS. Either client
// may be nil, in which case that leg is skipped.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &eventPublisher{
		redis:   redisClient,
		channel: channel,
		nats:    natsConn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", event.Type).Msg("failed to encode event")
		return
	}

	if p.redis != nil && p.channel != "" {
		if err := p.redis.Publish(ctx, p.channel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish event to redis")
		}
	}

	if p.nats != nil && p.subject != "" {
		if err := p.nats.Publish(p.subject, payload); err != nil {
			p.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish event to nats")
		}
	}
}

// NopEventPublisher drops every event. Useful in tests and when no broker is
// configured.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(ctx context.Context, event Event) {}
