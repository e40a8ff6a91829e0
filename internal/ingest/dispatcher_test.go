package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

var sampleInput = domain.Input{Source: domain.SourceUsers, Name: "user.created", Description: "signed up"}

func newTestDispatcher(store events.EventCreator, maxAttempts int) (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher(store, RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond})
	var waits []time.Duration
	d.wait = func(ctx context.Context, dur time.Duration) error {
		waits = append(waits, dur)
		return ctx.Err()
	}
	return d, &waits
}

func TestHandleSucceedsFirstTry(t *testing.T) {
	store := &fakeStore{}
	d, waits := newTestDispatcher(store, 5)

	out, err := d.Handle(context.Background(), sampleInput)
	require.NoError(t, err)

	assert.Equal(t, Succeeded, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, "user.created", out.Event.Name)
	assert.Nil(t, out.Event.UpdatedAt)
	assert.Len(t, store.calls, 1)
	assert.Empty(t, *waits)
}

func TestHandleRetriesTransientThenSucceeds(t *testing.T) {
	for k := 1; k < 5; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			script := make([]error, k)
			for i := range script {
				script[i] = events.ErrUnavailable
			}
			store := &fakeStore{script: script}
			d, waits := newTestDispatcher(store, 5)

			out, err := d.Handle(context.Background(), sampleInput)
			require.NoError(t, err)

			assert.Equal(t, Succeeded, out.Status)
			assert.Len(t, store.calls, k+1, "one create per attempt")
			assert.Equal(t, k+1, out.Attempts)
			assert.Len(t, *waits, k)
			assert.Len(t, store.created(), 1)
		})
	}
}

func TestHandleRetriesExhausted(t *testing.T) {
	store := &fakeStore{always: fmt.Errorf("%w: 503", events.ErrUnavailable)}
	d, waits := newTestDispatcher(store, 4)

	out, err := d.Handle(context.Background(), sampleInput)
	require.NoError(t, err)

	assert.Equal(t, Failed, out.Status)
	assert.Equal(t, ReasonRetriesExhausted, out.Reason)
	assert.Equal(t, ClassRetriesExhausted, out.Class)
	assert.ErrorIs(t, out.Err, events.ErrRetriesExhausted)
	assert.Len(t, store.calls, 4)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, *waits)
}

func TestHandlePermanentErrorIsNotRetried(t *testing.T) {
	store := &fakeStore{always: fmt.Errorf("%w: name too long", events.ErrInvalidData)}
	d, waits := newTestDispatcher(store, 5)

	out, err := d.Handle(context.Background(), sampleInput)
	require.NoError(t, err)

	assert.Equal(t, Failed, out.Status)
	assert.Equal(t, ClassValidation, out.Class)
	assert.ErrorIs(t, out.Err, events.ErrInvalidData)
	assert.Len(t, store.calls, 1)
	assert.Empty(t, *waits)
}

func TestHandleConflictIsRejected(t *testing.T) {
	store := &fakeStore{always: events.ErrConflict}
	d, _ := newTestDispatcher(store, 5)

	out, err := d.Handle(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, ClassRejected, out.Class)
	assert.Len(t, store.calls, 1)
}

func TestHandleUnknownErrorIsRetried(t *testing.T) {
	store := &fakeStore{script: []error{fmt.Errorf("connection reset by peer")}}
	d, _ := newTestDispatcher(store, 3)

	out, err := d.Handle(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out.Status)
	assert.Len(t, store.calls, 2)
}

func TestHandleAbortsAtAttemptBoundary(t *testing.T) {
	store := &fakeStore{always: events.ErrTimeout}
	d, _ := newTestDispatcher(store, 5)

	ctx, cancel := context.WithCancel(context.Background())
	d.wait = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	out, err := d.Handle(ctx, sampleInput)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Zero(t, out.Status, "aborted outcome is not terminal")
	assert.Len(t, store.calls, 1)
}

func TestCreateCallSurvivesShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var callErr error
	store := &fakeStore{}
	d := NewDispatcher(creatorFunc(func(callCtx context.Context, in domain.Input) (domain.Event, error) {
		cancel()
		callErr = callCtx.Err()
		return store.CreateEvent(callCtx, in)
	}), DefaultRetryPolicy(), WithCallTimeout(time.Second))

	out, err := d.Handle(ctx, sampleInput)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out.Status)
	assert.NoError(t, callErr, "in-flight call is not cancelled by shutdown")
}

type creatorFunc func(ctx context.Context, in domain.Input) (domain.Event, error)

func (f creatorFunc) CreateEvent(ctx context.Context, in domain.Input) (domain.Event, error) {
	return f(ctx, in)
}
