package repo

import (
	"context"

	"github.com/sirupsen/logrus"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

const qInsertEvent = `
INSERT INTO events (uuid, name, source, description)
VALUES ($1, $2, $3, $4)
RETURNING ` + eventColumns + `;`

// InsertEvent stores a new event. updated_at stays NULL.
func (r *EventRepo) InsertEvent(ctx context.Context, uuid string, in domain.Input) (domain.Event, error) {
	ev, err := scanEvent(r.repo.QueryRow(ctx, qInsertEvent, uuid, in.Name, string(in.Source), in.Description))
	if err != nil {
		err = mapErr(ctx, err)
		logging.LogError("Error inserting event", err, logrus.Fields{"uuid": uuid, "source": in.Source})
		return domain.Event{}, err
	}
	logging.LogDebug("Event inserted", logrus.Fields{"uuid": ev.UUID, "id": ev.ID})
	return ev, nil
}
