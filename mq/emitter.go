package mq

import (
	"context"
	"encoding/json"
	"log"

	"storefront/models"

	"github.com/redis/go-redis/v9"
)

func channel(orderID string) string {
	return "order-events:" + orderID
}

// Events publishes and subscribes to order status changes over Redis pub/sub.
type Events struct {
	conn *redis.Client
}

func NewEvents(conn *redis.Client) *Events {
	return &Events{conn: conn}
}

// Publish sends ev to subscribers of its order.
func (e *Events) Publish(ctx context.Context, ev models.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.conn.Publish(ctx, channel(ev.OrderID), data).Err()
}

// Subscribe streams events for one order until ctx is done or the returned
// cancel func is called.
func (e *Events) Subscribe(ctx context.Context, orderID string) (<-chan models.OrderEvent, func(), error) {
	sub := e.conn.Subscribe(ctx, channel(orderID))
	// wait for the subscription confirmation so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	out := make(chan models.OrderEvent, 4)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev models.OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[mq] bad order event on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { sub.Close() }, nil
}
