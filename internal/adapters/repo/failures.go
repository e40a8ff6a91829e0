package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Camillus83/eventmanager/internal/ingest"
)

// FailureRepo is the append-only Postgres table of messages the pipeline gave up on.
type FailureRepo struct {
	pool *pgxpool.Pool
}

func NewFailureRepo(pool *pgxpool.Pool) *FailureRepo { return &FailureRepo{pool: pool} }

const qInsertFailure = `
INSERT INTO ingest_failures (
    topic, partition, msg_offset, msg_key, payload, source, name, description,
    class, reason, attempts, failed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

func (r *FailureRepo) Record(ctx context.Context, f ingest.Failure) error {
	failedAt := f.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}
	payload := f.Message.Value
	if payload == nil {
		payload = []byte{}
	}
	var source, name, description *string
	if f.Input != nil {
		s, n, d := pgText(string(f.Input.Source)), pgText(f.Input.Name), pgText(f.Input.Description)
		source, name, description = &s, &n, &d
	}
	_, err := r.pool.Exec(ctx, qInsertFailure,
		pgText(f.Message.Topic), f.Message.Partition, f.Message.Offset, f.Message.Key, payload,
		source, name, description,
		string(f.Class), pgText(f.Reason), f.Attempts, failedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ingest failure: %w", mapErr(ctx, err))
	}
	return nil
}

// pgText makes s storable in a text column: postgres rejects NUL and invalid UTF-8.
// The raw message stays intact in the bytea payload.
func pgText(s string) string {
	return strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), "\uFFFD")
}

const qListFailures = `
SELECT topic, partition, msg_offset, payload, class, reason, attempts, failed_at
FROM ingest_failures
WHERE ($1::text = '' OR class = $1::text)
ORDER BY id DESC
LIMIT $2;`

// RecentFailures returns the newest failure records first, optionally of one class.
func (r *FailureRepo) RecentFailures(ctx context.Context, class ingest.FailureClass, limit int) ([]ingest.StoredFailure, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, qListFailures, string(class), limit)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	defer rows.Close()

	out := make([]ingest.StoredFailure, 0, limit)
	for rows.Next() {
		var (
			sf    ingest.StoredFailure
			class string
		)
		if err := rows.Scan(&sf.Topic, &sf.Partition, &sf.Offset, &sf.Payload, &class, &sf.Reason, &sf.Attempts, &sf.FailedAt); err != nil {
			return nil, mapErr(ctx, err)
		}
		sf.Class = ingest.FailureClass(class)
		out = append(out, sf)
	}
	return out, mapErr(ctx, rows.Err())
}
