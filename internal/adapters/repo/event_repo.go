package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

type EventRepo struct {
	repo *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo { return &EventRepo{repo: pool} }

const eventColumns = `id, uuid::text, name, source, description, created_at, updated_at`

type EventRow struct {
	ID          int64
	UUID        string
	Name        string
	Source      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

func (r *EventRow) ToDomain() domain.Event {
	return domain.Event{
		ID:          r.ID,
		UUID:        r.UUID,
		Name:        r.Name,
		Source:      domain.Source(r.Source),
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var er EventRow
	if err := row.Scan(&er.ID, &er.UUID, &er.Name, &er.Source, &er.Description, &er.CreatedAt, &er.UpdatedAt); err != nil {
		return domain.Event{}, err
	}
	return er.ToDomain(), nil
}

// mapErr переводит ошибки pgx в ошибки приложения.
func mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return events.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("%w: %v", events.ErrTimeout, err)
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		switch pgerr.Code {
		case "23514", "23502", "22001", "22P02", "22021", "22P05":
			return fmt.Errorf("%w: %s", events.ErrInvalidData, pgerr.Message)
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", events.ErrRetryable, pgerr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", events.ErrConflict, pgerr.Message)
		}
	}
	return err
}
