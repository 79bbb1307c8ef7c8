package rsvp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/async"
	"github.com/frontendmu/frontend.mu/pkg/observability"
	"github.com/frontendmu/frontend.mu/pkg/storage/redis"
	"github.com/frontendmu/frontend.mu/pkg/webhooks"
)

// PromotionWebhookEvent is the event name sent with promotion webhooks.
const PromotionWebhookEvent = "rsvp.promoted"

// Promotion tells a principal they moved off the waitlist.
type Promotion struct {
	RSVPID     uuid.UUID `json:"rsvp_id"`
	UserID     uuid.UUID `json:"user_id"`
	EventID    uuid.UUID `json:"event_id"`
	EventTitle string    `json:"event_title"`
	PromotedAt time.Time `json:"promoted_at"`
}

// Notifier delivers promotion notifications. Delivery happens after the
// promotion committed; a failed delivery never undoes it.
type Notifier interface {
	NotifyPromotion(ctx context.Context, p Promotion) error
}

// RedisNotifier publishes promotions as JSON on a pub/sub channel for the
// mailer to pick up.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing on channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// NotifyPromotion implements Notifier.
func (n *RedisNotifier) NotifyPromotion(ctx context.Context, p Promotion) error {
	if err := n.client.PublishJSON(ctx, n.channel, p); err != nil {
		return fmt.Errorf("failed to publish promotion: %w", err)
	}
	return nil
}

// LogNotifier writes promotions to the log. It is used when Redis is not
// configured.
type LogNotifier struct {
	logger *observability.Logger
}

// NewLogNotifier creates a log notifier
func NewLogNotifier(logger *observability.Logger) *LogNotifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogNotifier{logger: logger.WithComponent("rsvp")}
}

// NotifyPromotion implements Notifier.
func (n *LogNotifier) NotifyPromotion(ctx context.Context, p Promotion) error {
	n.logger.WithFields(map[string]interface{}{
		"rsvp_id":  p.RSVPID.String(),
		"user_id":  p.UserID.String(),
		"event_id": p.EventID.String(),
	}).Infof("Promoted from waitlist for %q", p.EventTitle)
	return nil
}

// WebhookNotifier POSTs promotions to an HTTP endpoint.
type WebhookNotifier struct {
	sender   *webhooks.Sender
	endpoint webhooks.Endpoint
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(sender *webhooks.Sender, endpoint webhooks.Endpoint) *WebhookNotifier {
	return &WebhookNotifier{sender: sender, endpoint: endpoint}
}

// NotifyPromotion implements Notifier. The RSVP id is the delivery id, so a
// receiver sees the same id on every retry.
func (n *WebhookNotifier) NotifyPromotion(ctx context.Context, p Promotion) error {
	attempts, err := n.sender.Send(ctx, n.endpoint, PromotionWebhookEvent, p.RSVPID.String(), p)
	if err != nil {
		return fmt.Errorf("failed to deliver promotion webhook after %d attempts: %w", attempts, err)
	}
	return nil
}

// MultiNotifier fans a promotion out to several notifiers.
type MultiNotifier []Notifier

// NotifyPromotion implements Notifier. Every notifier is called; the errors
// are joined.
func (m MultiNotifier) NotifyPromotion(ctx context.Context, p Promotion) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyPromotion(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncNotifier hands promotions to a worker pool so slow receivers do not
// hold up the request that caused the promotion.
type AsyncNotifier struct {
	next   Notifier
	pool   *async.WorkerPool
	logger *observability.Logger
}

// NewAsyncNotifier wraps next.
func NewAsyncNotifier(next Notifier, pool *async.WorkerPool, logger *observability.Logger) *AsyncNotifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AsyncNotifier{next: next, pool: pool, logger: logger.WithComponent("rsvp")}
}

// NotifyPromotion implements Notifier. The delivery runs on the pool's
// context, not the caller's. A full queue delivers inline; a closed pool is
// an error.
func (n *AsyncNotifier) NotifyPromotion(ctx context.Context, p Promotion) error {
	err := n.pool.Submit(func(ctx context.Context) error {
		if err := n.next.NotifyPromotion(ctx, p); err != nil {
			n.logger.WithError(err).WithField("rsvp_id", p.RSVPID.String()).Warn("Failed to send promotion notification")
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, async.ErrQueueFull):
		n.logger.WithField("rsvp_id", p.RSVPID.String()).Warn("Notification queue full, delivering inline")
		return n.next.NotifyPromotion(ctx, p)
	default:
		return fmt.Errorf("failed to queue promotion notification: %w", err)
	}
}
