package capture

import (
	"time"

	"github.com/google/uuid"
)

// Session represents the at-most-one active capture process.
type Session struct {
	ID        uuid.UUID
	PID       int
	SourceID  string
	StartedAt time.Time
}
