package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"github.com/Camillus83/eventmanager/internal/ingest"
)

type ReaderConfig struct {
	Brokers           []string
	ClientID          string
	Topic             string
	GroupID           string
	MinBytes          int           // 1<<10
	MaxBytes          int           // 10<<20
	MaxWait           time.Duration // 500 * time.Millisecond
	SessionTimeout    time.Duration // 10 * time.Second
	RebalanceTimeout  time.Duration // 10 * time.Second
	HeartbeatInterval time.Duration // 3 * time.Second
	StartOffset       int64         // kgo.FirstOffset / kgo.LastOffset
}

// groupReader — то, что нам нужно от *kgo.Reader.
type groupReader interface {
	FetchMessage(ctx context.Context) (kgo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// Reader adapts a consumer-group kafka-go reader to ingest.Stream. Offsets
// are committed explicitly, never on fetch.
type Reader struct {
	r groupReader
}

func NewReader(cfg ReaderConfig) (*Reader, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka reader: brokers, topic and group are required")
	}
	r := kgo.NewReader(kgo.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		Topic:             cfg.Topic,
		Dialer:            &kgo.Dialer{ClientID: cfg.ClientID, Timeout: 10 * time.Second, DualStack: true},
		MinBytes:          cfg.MinBytes,
		MaxBytes:          cfg.MaxBytes,
		MaxWait:           cfg.MaxWait,
		StartOffset:       cfg.StartOffset,
		SessionTimeout:    cfg.SessionTimeout,
		RebalanceTimeout:  cfg.RebalanceTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		// CommitInterval 0: CommitMessages is synchronous
		CommitInterval: 0,
	})
	return &Reader{r: r}, nil
}

// StartOffset maps "earliest"/"latest" onto kafka-go constants.
func StartOffset(s string) int64 {
	if s == "latest" {
		return kgo.LastOffset
	}
	return kgo.FirstOffset
}

func (r *Reader) Fetch(ctx context.Context) (ingest.Message, error) {
	m, err := r.r.FetchMessage(ctx)
	if err != nil {
		// reader закрыт — поток окончен
		if errors.Is(err, io.EOF) {
			return ingest.Message{}, ingest.ErrStreamClosed
		}
		return ingest.Message{}, err
	}
	return toMessage(m), nil
}

func (r *Reader) Commit(ctx context.Context, msgs ...ingest.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kgo.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, kgo.Message{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset})
	}
	return r.r.CommitMessages(ctx, out...)
}

func (r *Reader) Close() error {
	return r.r.Close()
}

func toMessage(m kgo.Message) ingest.Message {
	hdrs := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		hdrs[h.Key] = string(h.Value)
	}
	return ingest.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   hdrs,
		Time:      m.Time,
	}
}
