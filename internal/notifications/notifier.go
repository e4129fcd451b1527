// Package notifications delivers owner-facing moderation events: they are published to
// Redis channels and relayed to the owner's websocket connections by a Hub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types published to listing owners.
const (
	EventListingApproved = "listing_approved"
	EventListingRejected = "listing_rejected"
	EventListingHeld     = "listing_held"
	EventAppealResolved  = "appeal_resolved"
	EventAccountBanned   = "account_banned"
)

// ModerationEvent is the payload pushed to a user's channel.
type ModerationEvent struct {
	Type       string    `json:"type"`
	ListingID  uint      `json:"listing_id,omitempty"`
	ReviewID   uint      `json:"review_id,omitempty"`
	Decision   string    `json:"decision,omitempty"`
	Message    string    `json:"message"`
	Reasons    []string  `json:"reasons,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

const userChannelPattern = "notifications:user:*"

// UserChannel is the pub/sub channel for one user's notifications.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// ParseUserChannel extracts the user ID from a channel built by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	var userID uint
	var rest string
	n, _ := fmt.Sscanf(channel, "notifications:user:%d%s", &userID, &rest)
	if n != 1 || userID == 0 {
		return 0, false
	}
	return userID, true
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishModeration encodes and publishes a moderation event for the listing owner.
func (n *Notifier) PublishModeration(ctx context.Context, userID uint, event ModerationEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode moderation event: %w", err)
	}
	return n.PublishUser(ctx, userID, string(payload))
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage for each
// message until ctx is done. It returns once the subscription is confirmed by Redis.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in notification subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()
	return nil
}
