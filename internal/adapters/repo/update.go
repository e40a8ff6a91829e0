package repo

import (
	"context"

	"github.com/sirupsen/logrus"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

// updated_at never moves backwards: not before the previous update, not before creation.
const qUpdateEvent = `
UPDATE events SET
    name        = $2,
    source      = $3,
    description = $4,
    updated_at  = GREATEST(now(), COALESCE(updated_at, created_at))
WHERE uuid = $1
RETURNING ` + eventColumns + `;`

func (r *EventRepo) UpdateEvent(ctx context.Context, uuid string, in domain.Input) (domain.Event, error) {
	ev, err := scanEvent(r.repo.QueryRow(ctx, qUpdateEvent, uuid, in.Name, string(in.Source), in.Description))
	if err != nil {
		err = mapErr(ctx, err)
		logging.LogError("Error updating event", err, logrus.Fields{"uuid": uuid})
		return domain.Event{}, err
	}
	logging.LogInfo("Event updated", logrus.Fields{"uuid": uuid})
	return ev, nil
}
