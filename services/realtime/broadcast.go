package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"bloomify-insights/models"

	"github.com/go-redis/redis/v8"
)

const channelPrefix = "dashboard:"

// ChannelFor is the pub/sub channel carrying a provider's dashboard updates.
func ChannelFor(providerID string) string {
	return channelPrefix + providerID
}

// DashboardUpdate is the message pushed to live dashboards.
type DashboardUpdate struct {
	ProviderID string                    `json:"providerId"`
	Generation uint64                    `json:"generation"`
	Dashboard  *models.ProviderDashboard `json:"dashboard"`
}

// Broadcaster publishes dashboard updates and lets HTTP streams follow them.
type Broadcaster interface {
	Publish(ctx context.Context, update DashboardUpdate) error
	// Follow delivers raw update messages for a provider until ctx is done
	// or the returned stop function is called.
	Follow(ctx context.Context, providerID string) (<-chan []byte, func(), error)
}

type redisBroadcaster struct {
	client *redis.Client
}

func NewRedisBroadcaster(client *redis.Client) Broadcaster {
	return &redisBroadcaster{client: client}
}

func (b *redisBroadcaster) Publish(ctx context.Context, update DashboardUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard update: %w", err)
	}
	if err := b.client.Publish(ctx, ChannelFor(update.ProviderID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish dashboard update: %w", err)
	}
	return nil
}

func (b *redisBroadcaster) Follow(ctx context.Context, providerID string) (<-chan []byte, func(), error) {
	sub := b.client.Subscribe(ctx, ChannelFor(providerID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to dashboard updates: %w", err)
	}

	out := make(chan []byte, 8)
	followCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-followCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-followCtx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
