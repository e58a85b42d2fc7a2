package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/rmoreas/warcycle/internal/logging"
)

// Message is the envelope passed between components on the bus.
type Message struct {
	Topic    string
	Payload  []byte
	Metadata map[string]string
}

// Handler processes a received message. A non-nil error nacks the message.
type Handler func(ctx context.Context, msg Message) error

// Publisher is the sending half of the bus contract.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber is the receiving half. Subscribe is non-blocking; delivery
// happens on a background goroutine until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// Bus implements Publisher and Subscriber over watermill's in-memory
// GoChannel transport.
type Bus struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewBus creates an in-process bus. OutputChannelBuffer keeps slow
// subscribers (the journal) from stalling the clock and drain loop.
func NewBus() *Bus {
	logger := watermill.NopLogger{}
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &Bus{pub: ch, sub: ch}
}

// Publish implements Publisher.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	wm := message.NewMessage(watermill.NewUUID(), msg.Payload)
	for k, v := range msg.Metadata {
		wm.Metadata.Set(k, v)
	}
	return b.pub.Publish(msg.Topic, wm)
}

// Subscribe implements Subscriber.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for wm := range messages {
			meta := make(map[string]string, len(wm.Metadata))
			for k, v := range wm.Metadata {
				meta[k] = v
			}
			msg := Message{Topic: topic, Payload: wm.Payload, Metadata: meta}
			if err := handler(ctx, msg); err != nil {
				logging.Error("event handler failed", err, logging.Fields{"topic": topic, "msg_id": wm.UUID})
				wm.Nack()
				continue
			}
			wm.Ack()
		}
	}()
	return nil
}

// Close shuts the bus down; pending deliveries are dropped.
func (b *Bus) Close() error {
	return b.sub.(*gochannel.GoChannel).Close()
}

// Publish marshals a typed payload and publishes it on the given topic.
func Publish[T any](ctx context.Context, p Publisher, topic string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, Message{Topic: topic, Payload: data})
}

// Subscribe registers a typed handler for a topic. Payloads that fail to
// unmarshal are nacked.
func Subscribe[T any](ctx context.Context, s Subscriber, topic string, fn func(ctx context.Context, payload T) error) error {
	return s.Subscribe(ctx, topic, func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		return fn(ctx, payload)
	})
}
