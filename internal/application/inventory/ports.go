package inventory

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator supplies identifiers for new entities, movements and events
type IDGenerator interface {
	NewID() uuid.UUID
}

// Clock supplies the time stamped on movements, counts and events
type Clock interface {
	Now() time.Time
}

// UUIDGenerator issues time-ordered UUIDv7 identifiers, falling back to v4
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
