package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Get(ctx context.Context, professionalID uuid.UUID) (Weekly, error) {
	var raw []byte

	err := s.pool.QueryRow(ctx, `
		SELECT schedule
		FROM availabilities
		WHERE professional_id = $1
	`, professionalID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Weekly{}, ErrNotFound
		}
		return Weekly{}, fmt.Errorf("load availability: %w", err)
	}

	var w Weekly
	if err := json.Unmarshal(raw, &w); err != nil {
		return Weekly{}, fmt.Errorf("decode availability: %w", err)
	}
	return w, nil
}

func (s *PgStore) Replace(ctx context.Context, professionalID uuid.UUID, schedule Weekly) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO availabilities (professional_id, schedule, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (professional_id)
		DO UPDATE SET schedule = EXCLUDED.schedule, updated_at = now()
	`, professionalID, raw)
	if err != nil {
		return fmt.Errorf("replace availability: %w", err)
	}

	return nil
}
