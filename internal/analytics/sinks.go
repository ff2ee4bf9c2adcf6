package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

// LogSink writes events to the structured logger. Used when no Pub/Sub
// topic is configured.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Send(ctx context.Context, event Event) error {
	if s == nil || s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":          string(event.Name),
		"session_id":     event.SessionID,
		"currency":       event.Currency,
		"value":          event.Value.StringFixed(2),
		"quantity_delta": event.QuantityDelta,
		"item_count":     event.ItemCount,
		"items":          len(event.Items),
	})
	s.logg.Info(ctx, "analytics event")
	return nil
}

func (s *LogSink) Close() error { return nil }

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type gcpPublisher struct {
	publisher *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.publisher.Publish(ctx, msg)
}

func (g gcpPublisher) Stop() {
	g.publisher.Stop()
}

// PubSubSink publishes each event as a JSON message on the analytics topic.
type PubSubSink struct {
	publisher publisher
}

func NewPubSubSink(p *gcppubsub.Publisher) (*PubSubSink, error) {
	if p == nil {
		return nil, errors.New("analytics publisher is required")
	}
	return &PubSubSink{publisher: gcpPublisher{publisher: p}}, nil
}

func (s *PubSubSink) Send(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analytics event: %w", err)
	}
	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":      string(event.Name),
			"session_id": event.SessionID,
		},
	}
	if _, err := s.publisher.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish analytics event: %w", err)
	}
	return nil
}

func (s *PubSubSink) Close() error {
	s.publisher.Stop()
	return nil
}
