package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event types published on the per-user channel. Clients (browser tabs)
// subscribe over SSE and re-read their snapshots on every event, which
// replaces polling storage changes across tabs.
const (
	TypeSignedIn           = "session.signed_in"
	TypeSignedOut          = "session.signed_out"
	TypeEntitlementUpdated = "entitlement.updated"
	TypeCheckoutCompleted  = "checkout.completed"
	TypeCheckoutCancelled  = "checkout.cancelled"
	TypeCheckoutFailed     = "checkout.failed"
)

type Event struct {
	Type   string         `json:"type"`
	UserID string         `json:"userId"`
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data,omitempty"`
}

// Broadcaster fans session and entitlement mutations out to every
// connected view of a user via redis pub/sub.
type Broadcaster struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewBroadcaster(rdb *redis.Client, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{rdb: rdb, log: log}
}

func channelFor(userID string) string {
	return fmt.Sprintf("events:user:%s", userID)
}

// Publish is best-effort: a lost notification only delays a view until its
// next snapshot read, so failures are logged and swallowed.
func (b *Broadcaster) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error().Err(err).Str("type", event.Type).Msg("marshal event")
		return
	}

	if err := b.rdb.Publish(ctx, channelFor(event.UserID), payload).Err(); err != nil {
		b.log.Warn().Err(err).
			Str("type", event.Type).
			Str("user_id", event.UserID).
			Msg("publish event failed")
	}
}

// Subscribe returns a channel of the user's events plus a release func.
// The caller must invoke release when the view detaches; the channel is
// closed afterwards.
func (b *Broadcaster) Subscribe(ctx context.Context, userID string) (<-chan Event, func()) {
	sub := b.rdb.Subscribe(ctx, channelFor(userID))
	out := make(chan Event, 8)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Msg("decode event payload")
				continue
			}
			select {
			case out <- event:
			default:
				// Slow consumer: drop rather than block the pump. The
				// client re-syncs from its next snapshot read.
			}
		}
	}()

	release := func() {
		_ = sub.Close()
	}
	return out, release
}
