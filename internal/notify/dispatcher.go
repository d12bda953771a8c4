// Package notify delivers fire-and-forget event notifications after a
// successful commit. Delivery failures are logged and dropped; they never
// roll back or delay the transition they describe.
package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
)

const publishTimeout = 15 * time.Second

// Event describes a committed state transition.
type Event struct {
	Name          enums.NotificationEvent `json:"name"`
	AggregateType enums.AggregateType     `json:"aggregate_type"`
	AggregateID   uuid.UUID               `json:"aggregate_id"`
	Payload       map[string]any          `json:"payload,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// Dispatcher is the notification collaborator. Implementations must never
// block the caller on delivery.
type Dispatcher interface {
	Notify(ctx context.Context, event Event)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisherAdapter struct {
	inner *gcppubsub.Publisher
}

func (p publisherAdapter) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.inner.Publish(ctx, msg)
}

// PubSubDispatcher publishes events to the fulfillment events topic.
type PubSubDispatcher struct {
	publisher publisher
	logg      *logger.Logger
}

// NewPubSubDispatcher wires a dispatcher to a concrete Pub/Sub publisher.
func NewPubSubDispatcher(pub *gcppubsub.Publisher, logg *logger.Logger) (*PubSubDispatcher, error) {
	if pub == nil {
		return nil, stderrors.New("publisher is required")
	}
	if logg == nil {
		return nil, stderrors.New("logger is required")
	}
	return &PubSubDispatcher{publisher: publisherAdapter{inner: pub}, logg: logg}, nil
}

func newDispatcherWithPublisher(pub publisher, logg *logger.Logger) *PubSubDispatcher {
	return &PubSubDispatcher{publisher: pub, logg: logg}
}

// Notify serializes and publishes the event, waiting for the server ack on a
// background goroutine so the caller returns immediately.
func (d *PubSubDispatcher) Notify(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		d.logg.Warn(ctx, fmt.Sprintf("encoding %s notification: %v", event.Name, err))
		return
	}

	msg := &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event":          event.Name.String(),
			"aggregate_type": event.AggregateType.String(),
			"aggregate_id":   event.AggregateID.String(),
		},
	}

	// Publish is asynchronous; confirm the ack off the request path. The
	// detached context keeps the ack wait alive after the request finishes.
	result := d.publisher.Publish(context.WithoutCancel(ctx), msg)
	go func() {
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if _, err := result.Get(waitCtx); err != nil {
			d.logg.Warn(waitCtx, fmt.Sprintf("publishing %s notification: %v", event.Name, err))
		}
	}()
}

// NoopDispatcher drops every event. Used when Pub/Sub is not configured.
type NoopDispatcher struct{}

// Notify implements Dispatcher.
func (NoopDispatcher) Notify(context.Context, Event) {}
