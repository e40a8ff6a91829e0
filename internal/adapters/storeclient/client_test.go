package storeclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

var sample = domain.Input{Source: domain.SourceUsers, Name: "user_registered", Description: "signup"}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCreateEventSuccess(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in domain.Input
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, sample, in)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9,"uuid":"c0ffee00-0000-4000-8000-000000000001","name":"user_registered","source":"users","description":"signup","createdAt":"2024-01-02T03:04:05Z","updatedAt":null}`))
	})

	ev, err := c.CreateEvent(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, int64(9), ev.ID)
	assert.Equal(t, "c0ffee00-0000-4000-8000-000000000001", ev.UUID)
	assert.Equal(t, domain.SourceUsers, ev.Source)
	assert.Nil(t, ev.UpdatedAt)
}

func TestCreateEventStatusMapping(t *testing.T) {
	tests := []struct {
		code      int
		want      error
		transient bool
	}{
		{http.StatusBadRequest, events.ErrInvalidData, false},
		{http.StatusUnprocessableEntity, events.ErrInvalidData, false},
		{http.StatusNotFound, events.ErrNotFound, false},
		{http.StatusConflict, events.ErrConflict, false},
		{http.StatusRequestTimeout, events.ErrUnavailable, true},
		{http.StatusTooManyRequests, events.ErrUnavailable, true},
		{http.StatusInternalServerError, events.ErrUnavailable, true},
		{http.StatusServiceUnavailable, events.ErrUnavailable, true},
		{http.StatusTeapot, events.ErrUnexpected, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			})
			_, err := c.CreateEvent(context.Background(), sample)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.transient, events.IsTransient(err))

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, "nope", se.Body)
		})
	}
}

func TestCreateEventTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	_, err := c.CreateEvent(context.Background(), sample)
	assert.ErrorIs(t, err, events.ErrTimeout)
	assert.True(t, events.IsTransient(err))
}

func TestCreateEventConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)
	_, err = c.CreateEvent(context.Background(), sample)
	assert.ErrorIs(t, err, events.ErrUnavailable)
}

func TestCreateEventGarbledResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":`))
	})
	_, err := c.CreateEvent(context.Background(), sample)
	assert.ErrorIs(t, err, events.ErrUnavailable)
}

func TestPing(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
