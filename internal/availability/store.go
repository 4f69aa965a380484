package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("availability not found")
)

// Store persists one Weekly schedule per professional.
type Store interface {
	Get(ctx context.Context, professionalID uuid.UUID) (Weekly, error)

	// Replace overwrites the full weekly structure. Callers must have
	// validated the schedule first.
	Replace(ctx context.Context, professionalID uuid.UUID, schedule Weekly) error
}
