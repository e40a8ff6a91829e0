package repo

import (
	"context"

	"github.com/sirupsen/logrus"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

const qFindEventByUUID = `SELECT ` + eventColumns + ` FROM events WHERE uuid = $1;`

func (r *EventRepo) GetEvent(ctx context.Context, uuid string) (domain.Event, error) {
	ev, err := scanEvent(r.repo.QueryRow(ctx, qFindEventByUUID, uuid))
	if err != nil {
		err = mapErr(ctx, err)
		logging.LogDebug("Event lookup failed", logrus.Fields{"uuid": uuid, "error": err.Error()})
		return domain.Event{}, err
	}
	return ev, nil
}
