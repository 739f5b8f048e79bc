// Package liveupdate pushes settled bid state to auction watchers. Delivery
// is best effort: nothing here can fail or undo a settlement.
package liveupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/safar/auction-ledger/internal/models"
)

type Publisher interface {
	PublishLiveUpdate(ctx context.Context, auctionID string, update models.LiveUpdate) error
}

// RedisPublisher publishes on the pub/sub channel the broadcast service
// relays to websocket clients.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishLiveUpdate(ctx context.Context, auctionID string, update models.LiveUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal live update: %w", err)
	}

	if err := p.client.Publish(ctx, RedisChannel(auctionID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func RedisChannel(auctionID string) string {
	return fmt.Sprintf("auction_updates:%s", auctionID)
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) PublishLiveUpdate(_ context.Context, auctionID string, update models.LiveUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal live update: %w", err)
	}

	if err := p.conn.Publish(NATSSubject(auctionID), payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func NATSSubject(auctionID string) string {
	return fmt.Sprintf("auction.updates.%s", auctionID)
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) PublishLiveUpdate(ctx context.Context, auctionID string, update models.LiveUpdate) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishLiveUpdate(ctx, auctionID, update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
