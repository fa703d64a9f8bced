package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is anything that accepts an event for delivery.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// RedisPublisher sends events to a pub/sub channel so that every instance's
// relay sees them. Broadcast waits for Redis, so it runs behind a dispatch
// queue and never on the request path.
type RedisPublisher struct {
	rc      *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisPublisher(rc *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rc: rc, channel: channel, timeout: 2 * time.Second}
}

func (p *RedisPublisher) Broadcast(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.rc.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.Name, err)
	}
	return nil
}

// Relay forwards events from the Redis channel to a local publisher.
type Relay struct {
	rc      *redis.Client
	channel string
	target  Publisher
	logger  *zap.Logger
	sub     *redis.PubSub
}

// NewRelay subscribes before returning, so nothing published afterwards is
// missed by Run.
func NewRelay(ctx context.Context, rc *redis.Client, channel string, target Publisher, logger *zap.Logger) (*Relay, error) {
	sub := rc.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return &Relay{rc: rc, channel: channel, target: target, logger: logger, sub: sub}, nil
}

// Run forwards messages until ctx is done, resubscribing if the channel closes.
func (r *Relay) Run(ctx context.Context) {
	defer func() { r.sub.Close() }()
	for {
		r.forward(ctx, r.sub.Channel())
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("pubsub channel closed, reconnecting")
		r.sub.Close()
		time.Sleep(time.Second)
		r.sub = r.rc.Subscribe(ctx, r.channel)
	}
}

func (r *Relay) forward(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev struct {
				Name    string          `json:"event"`
				Payload json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Error("unable to parse event", zap.Error(err))
				continue
			}
			r.target.Publish(ctx, ev.Name, ev.Payload)
		}
	}
}
