package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

var errTxRequired = errors.New("outbox writes require a transaction")

// DomainEvent is what callers hand to Emit. Data is marshalled as the
// envelope's data field.
type DomainEvent struct {
	EventType     string
	AggregateType string
	AggregateID   string
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case e.EventType == "":
		return errors.New("outbox event type is required")
	case e.AggregateType == "":
		return fmt.Errorf("%s: aggregate type is required", e.EventType)
	case e.AggregateID == "":
		return fmt.Errorf("%s: aggregate id is required", e.EventType)
	}
	return nil
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit writes events inside tx so they commit or roll back with the caller's
// own rows. Either every event is queued or none is.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, events ...DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if len(events) == 0 {
		return nil
	}
	now := s.now()
	rows := make([]models.OutboxEvent, 0, len(events))
	ids := make([]string, 0, len(events))
	for _, event := range events {
		if err := event.validate(); err != nil {
			return err
		}
		env, err := sealEnvelope(event, now)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("encode %s envelope: %w", event.EventType, err)
		}
		rows = append(rows, models.OutboxEvent{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       payload,
		})
		ids = append(ids, env.EventID)
	}
	if err := s.repo.InsertBatch(ctx, tx, rows); err != nil {
		return err
	}

	if s.logg != nil {
		for i, row := range rows {
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"event_id":     ids[i],
				"event_type":   row.EventType,
				"aggregate_id": row.AggregateID,
			}), "outbox.queued")
		}
	}
	return nil
}
