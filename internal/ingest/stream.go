// Package ingest turns stream messages into stored events.
//
// A Consumer pulls messages from a Stream, keeps one worker per partition,
// and commits a message's offset only after the Dispatcher has reached a
// terminal outcome for it. Delivery is at-least-once: a message whose commit
// did not land is processed again after a restart and, since the store has no
// natural dedup key, produces a second event.
package ingest

import (
	"context"
	"errors"
	"time"
)

// Message is one raw record pulled from the stream.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Time      time.Time
}

// ErrStreamClosed is returned by Fetch once the stream has no more messages
// and never will.
var ErrStreamClosed = errors.New("stream closed")

// Stream is an ordered, partitioned message source with explicit commits.
// Fetch must be called from a single goroutine; Commit may be called
// concurrently from partition workers.
type Stream interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}
