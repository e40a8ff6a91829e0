package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
	"github.com/Camillus83/eventmanager/internal/metrics"
)

// ErrAborted means shutdown interrupted a retry sequence before it reached a
// terminal outcome. The message must not be committed.
var ErrAborted = errors.New("dispatch aborted")

const ReasonRetriesExhausted = "retries exhausted"

type Status int

const (
	Succeeded Status = iota + 1
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result for one request.
type Outcome struct {
	Status   Status
	Event    domain.Event
	Class    FailureClass
	Reason   string
	Err      error
	Attempts int
}

type Dispatcher struct {
	store       events.EventCreator
	policy      RetryPolicy
	callTimeout time.Duration
	metrics     *metrics.Pipeline
	wait        func(ctx context.Context, d time.Duration) error
}

type DispatcherOption func(*Dispatcher)

// WithCallTimeout bounds a single create call. The call itself is not
// cancelled by shutdown, only by this timeout.
func WithCallTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.callTimeout = d }
}

func WithDispatcherMetrics(m *metrics.Pipeline) DispatcherOption {
	return func(disp *Dispatcher) { disp.metrics = m }
}

func NewDispatcher(store events.EventCreator, policy RetryPolicy, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		policy:      policy.normalized(),
		callTimeout: 10 * time.Second,
		wait:        sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewPipeline(nil)
	}
	return d
}

// Handle issues create calls until one succeeds, a permanent error comes
// back, or MaxAttempts is spent. A non-nil error is returned only when ctx
// was cancelled between attempts; it wraps ErrAborted.
func (d *Dispatcher) Handle(ctx context.Context, in domain.Input) (Outcome, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		ev, err := d.create(ctx, in)
		if err == nil {
			d.metrics.CreateAttempts.WithLabelValues("ok").Inc()
			return Outcome{Status: Succeeded, Event: ev, Attempts: attempt}, nil
		}
		lastErr = err

		if !events.IsTransient(err) {
			d.metrics.CreateAttempts.WithLabelValues("permanent").Inc()
			class := ClassRejected
			if errors.Is(err, events.ErrInvalidData) {
				class = ClassValidation
			}
			return Outcome{Status: Failed, Class: class, Reason: err.Error(), Err: err, Attempts: attempt}, nil
		}
		d.metrics.CreateAttempts.WithLabelValues("transient").Inc()

		if attempt >= d.policy.MaxAttempts {
			break
		}

		delay := d.policy.Backoff(attempt)
		logging.LogWarn("event store create failed, retrying", logrus.Fields{
			"attempt": attempt,
			"max":     d.policy.MaxAttempts,
			"backoff": delay.String(),
			"error":   err.Error(),
		})
		if werr := d.wait(ctx, delay); werr != nil {
			return Outcome{Attempts: attempt, Err: lastErr}, fmt.Errorf("%w after %d attempts: %v", ErrAborted, attempt, werr)
		}
	}

	return Outcome{
		Status:   Failed,
		Class:    ClassRetriesExhausted,
		Reason:   ReasonRetriesExhausted,
		Err:      fmt.Errorf("%w after %d attempts: %v", events.ErrRetriesExhausted, d.policy.MaxAttempts, lastErr),
		Attempts: d.policy.MaxAttempts,
	}, nil
}

// create detaches the call from ctx cancellation so shutdown lands on an
// attempt boundary, never in the middle of a call.
func (d *Dispatcher) create(ctx context.Context, in domain.Input) (domain.Event, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.callTimeout)
	defer cancel()
	return d.store.CreateEvent(callCtx, in)
}
