package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

var sortWhitelist = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
	"source":     "source",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type whereBuilder struct {
	sb   strings.Builder
	args []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.sb.WriteString(" AND ")
	w.sb.WriteString(fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) text(col string, f events.TextFilter) {
	if f.Exact != nil {
		w.add(col+" = $%d", *f.Exact)
	}
	if f.Contains != nil {
		w.add(col+` ILIKE '%%' || $%d::text || '%%'`, likeEscaper.Replace(*f.Contains))
	}
	if f.StartsWith != nil {
		w.add(col+` ILIKE $%d::text || '%%'`, likeEscaper.Replace(*f.StartsWith))
	}
}

func (w *whereBuilder) time(col string, f events.TimeFilter) {
	if f.Exact != nil {
		w.add(col+" = $%d", *f.Exact)
	}
	if f.From != nil {
		w.add(col+" >= $%d", *f.From)
	}
	if f.To != nil {
		w.add(col+" <= $%d", *f.To)
	}
}

func (r *EventRepo) ListEvents(ctx context.Context, f events.ListFilters, p events.PageRequest) ([]domain.Event, error) {
	logging.LogDebug("Starting event search", logrus.Fields{
		"filters":      f,
		"page_request": p,
	})

	var w whereBuilder
	w.sb.WriteString(`SELECT ` + eventColumns + ` FROM events WHERE 1=1`)
	w.text("name", f.Name)
	w.text("description", f.Description)
	w.text("source", f.Source)
	w.time("created_at", f.CreatedAt)
	w.time("updated_at", f.UpdatedAt)

	col, ok := sortWhitelist[p.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := strings.ToUpper(p.SortDir)
	if dir != "ASC" && dir != "DESC" {
		dir = "DESC"
	}
	w.sb.WriteString(" ORDER BY " + col + " " + dir + " NULLS LAST, id " + dir)

	if p.Limit <= 0 || p.Limit > events.MaxLimit {
		p.Limit = events.DefaultLimit
	}
	w.args = append(w.args, p.Limit)
	w.sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(w.args)))
	if p.Offset > 0 {
		w.args = append(w.args, p.Offset)
		w.sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(w.args)))
	}

	rows, err := r.repo.Query(ctx, w.sb.String(), w.args...)
	if err != nil {
		err = mapErr(ctx, err)
		logging.LogError("Error executing search query", err, logrus.Fields{"query": w.sb.String()})
		return nil, err
	}
	out, err := collectEvents(ctx, rows)
	if err != nil {
		logging.LogError("Error reading search results", err, logrus.Fields{"query": w.sb.String()})
		return nil, err
	}

	logging.LogDebug("Search completed successfully", logrus.Fields{"found_events": len(out)})
	return out, nil
}

const qAllEvents = `SELECT ` + eventColumns + ` FROM events ORDER BY id;`

func (r *EventRepo) AllEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.repo.Query(ctx, qAllEvents)
	if err != nil {
		err = mapErr(ctx, err)
		logging.LogError("Error listing all events", err, logrus.Fields{})
		return nil, err
	}
	return collectEvents(ctx, rows)
}

func collectEvents(ctx context.Context, rows pgx.Rows) ([]domain.Event, error) {
	defer rows.Close()
	out := make([]domain.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, mapErr(ctx, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(ctx, err)
	}
	return out, nil
}
