package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Topics emitted by the hierarchy engine.
const (
	TopicOrgUnitCreated       = "orgunit.created"
	TopicOrgUnitDeleted       = "orgunit.deleted"
	TopicAppointmentAssigned  = "appointment.assigned"
	TopicAppointmentDismissed = "appointment.dismissed"
	TopicChannelSynced        = "channel.synced"
)

// Publisher records domain events for downstream consumers. When tx is
// non-nil the event row commits with the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, tx *gorm.DB, topic string, payload any) error
}

type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
}

// NewOutboxPublisher stores events in the hierarchy_events outbox table.
func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node) Publisher {
	return &outboxPublisher{
		db:    db,
		genID: genID,
	}
}

func (p *outboxPublisher) Publish(ctx context.Context, tx *gorm.DB, topic string, payload any) error {
	db := p.db
	if tx != nil {
		db = tx
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`INSERT INTO hierarchy_events (id, event_uuid, event_type, payload, published, created_at)
		 VALUES (?, ?, ?, ?, false, ?)`,
		p.genID.Generate(),
		uuid.NewString(),
		topic,
		datatypes.JSON(body),
		now,
	).Error
}

// Module provides the outbox publisher.
var Module = fx.Module("events",
	fx.Provide(NewOutboxPublisher),
)
