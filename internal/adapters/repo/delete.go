package repo

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/app/events"
	"github.com/Camillus83/eventmanager/internal/logging"
)

const qDeleteEvent = `DELETE FROM events WHERE uuid = $1;`

func (r *EventRepo) DeleteEvent(ctx context.Context, uuid string) error {
	logging.LogInfo("Attempting to delete event", logrus.Fields{"uuid": uuid})

	select {
	case <-ctx.Done():
		logging.LogError("Context was canceled or deadline exceeded", ctx.Err(), logrus.Fields{"uuid": uuid})
		return events.ErrTimeout
	default:
	}
	ct, err := r.repo.Exec(ctx, qDeleteEvent, uuid)
	if err != nil {
		err = mapErr(ctx, err)
		logging.LogError("Error executing DELETE query", err, logrus.Fields{"uuid": uuid})
		return err
	}
	if ct.RowsAffected() == 0 {
		logging.LogDebug("Event not found to delete", logrus.Fields{"uuid": uuid})
		return events.ErrNotFound
	}

	logging.LogInfo("Event deleted successfully", logrus.Fields{"uuid": uuid})
	return nil
}
