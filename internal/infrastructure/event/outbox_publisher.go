package event

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxPublisher serializes domain events into outbox entries
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
	newID      func() uuid.UUID
	now        func() time.Time
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{
		serializer: serializer,
		maxRetries: shared.DefaultMaxRetries,
		newID:      uuid.New,
		now:        time.Now,
	}
}

// WithMaxRetries sets the delivery attempts allowed before an entry goes dead
func (p *OutboxPublisher) WithMaxRetries(n int) *OutboxPublisher {
	if n > 0 {
		p.maxRetries = n
	}
	return p
}

// Entries converts events to pending outbox entries
func (p *OutboxPublisher) Entries(events ...shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	now := p.now()
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return nil, err
		}
		entry := shared.NewOutboxEntry(p.newID(), event, payload, now)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}
	return entries, nil
}

// WithTx returns an OutboxEventSaver that writes into tx, so the entries
// commit or roll back together with the stock change that raised them
func (p *OutboxPublisher) WithTx(tx *gorm.DB) shared.OutboxEventSaver {
	return &txOutboxSaver{publisher: p, repo: NewGormOutboxRepository(tx)}
}

type txOutboxSaver struct {
	publisher *OutboxPublisher
	repo      *GormOutboxRepository
}

func (s *txOutboxSaver) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries, err := s.publisher.Entries(events...)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, entries...)
}
