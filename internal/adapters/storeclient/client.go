// Package storeclient calls the Event Store HTTP API on behalf of the
// ingestion pipeline and classifies every failure into the events error
// taxonomy, so the dispatcher can tell transient from permanent.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	base   string
	client *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("event store url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StatusError is a non-2xx answer from the store.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("event store: http status %d", e.Code)
	}
	return fmt.Sprintf("event store: http status %d: %s", e.Code, e.Body)
}

// Unwrap maps the status to the events taxonomy.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusBadRequest, e.Code == http.StatusUnprocessableEntity:
		return events.ErrInvalidData
	case e.Code == http.StatusNotFound:
		return events.ErrNotFound
	case e.Code == http.StatusConflict:
		return events.ErrConflict
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests, e.Code >= 500:
		return events.ErrUnavailable
	}
	return events.ErrUnexpected
}

type eventJSON struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	UUID        string     `json:"uuid"`
	Source      string     `json:"source"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	Description string     `json:"description"`
}

func (e eventJSON) toDomain() domain.Event {
	return domain.Event{
		ID:          e.ID,
		UUID:        e.UUID,
		Name:        e.Name,
		Source:      domain.Source(e.Source),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// CreateEvent posts one createEvent. Each call is a fresh request; the store
// assigns a new uuid every time.
func (c *Client) CreateEvent(ctx context.Context, in domain.Input) (domain.Event, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: encode: %v", events.ErrInvalidData, err)
	}

	var out eventJSON
	if err := c.do(ctx, http.MethodPost, "/events", body, &out); err != nil {
		return domain.Event{}, err
	}
	return out.toDomain(), nil
}

// Ping checks that the store answers its liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", events.ErrUnexpected, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransport(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: readError(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// ответ оборвался или это не наш сервер: повтор может помочь
		return fmt.Errorf("%w: decode response: %v", events.ErrUnavailable, err)
	}
	return nil
}

func classifyTransport(ctx context.Context, err error) error {
	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return fmt.Errorf("%w: %v", events.ErrTimeout, err)
	case errors.As(err, &nerr) && nerr.Timeout():
		return fmt.Errorf("%w: %v", events.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", events.ErrUnavailable, err)
}

func readError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}
