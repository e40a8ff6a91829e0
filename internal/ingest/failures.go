package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
	"github.com/Camillus83/eventmanager/internal/metrics"
)

type FailureClass string

const (
	ClassDecode           FailureClass = "decode"
	ClassValidation       FailureClass = "validation"
	ClassRejected         FailureClass = "rejected"
	ClassRetriesExhausted FailureClass = "retries_exhausted"
)

// Failure is a message the pipeline gave up on.
type Failure struct {
	Message  Message
	Input    *domain.Input
	Class    FailureClass
	Reason   string
	Attempts int
	FailedAt time.Time
}

func (f Failure) fields() logrus.Fields {
	return logrus.Fields{
		"topic":     f.Message.Topic,
		"partition": f.Message.Partition,
		"offset":    f.Message.Offset,
		"class":     string(f.Class),
		"reason":    f.Reason,
		"attempts":  f.Attempts,
		"payload":   string(f.Message.Value),
	}
}

// StoredFailure is a failure as read back from a durable sink.
type StoredFailure struct {
	Topic     string
	Partition int
	Offset    int64
	Payload   []byte
	Class     FailureClass
	Reason    string
	Attempts  int
	FailedAt  time.Time
}

// ParseFailureClass accepts only the classes the pipeline produces.
func ParseFailureClass(s string) (FailureClass, bool) {
	switch c := FailureClass(s); c {
	case ClassDecode, ClassValidation, ClassRejected, ClassRetriesExhausted:
		return c, true
	}
	return "", false
}

// FailureSink durably records failures. Implementations must be safe for
// concurrent use.
type FailureSink interface {
	Record(ctx context.Context, f Failure) error
}

// MultiFailureSink records to every sink and joins the errors.
type MultiFailureSink []FailureSink

func (m MultiFailureSink) Record(ctx context.Context, f Failure) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogFailureSink writes failures to the process log only.
type LogFailureSink struct{}

func (LogFailureSink) Record(_ context.Context, f Failure) error {
	logging.LogError("ingest failure", nil, f.fields())
	return nil
}

var (
	ErrFailureQueueFull  = errors.New("failure queue full")
	ErrFailureSinkClosed = errors.New("failure sink closed")
)

// AsyncFailureSink hands failures to a background writer so a slow or stuck
// sink never holds up a partition worker. Record only enqueues. A failure that
// cannot be queued is logged in full, it is never silently lost.
// When next is a MultiFailureSink each member is retried on its own, so a
// member that already accepted the failure is not written again.
type AsyncFailureSink struct {
	targets []FailureSink
	queue   chan Failure
	policy  RetryPolicy
	timeout time.Duration
	metrics *metrics.Pipeline

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsyncFailureSink(next FailureSink, size int, m *metrics.Pipeline) *AsyncFailureSink {
	if size <= 0 {
		size = 1
	}
	if m == nil {
		m = metrics.NewPipeline(nil)
	}
	targets := []FailureSink{next}
	if multi, ok := next.(MultiFailureSink); ok {
		targets = multi
	}
	s := &AsyncFailureSink{
		targets: targets,
		queue:   make(chan Failure, size),
		policy:  RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second},
		timeout: 5 * time.Second,
		metrics: m,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncFailureSink) Record(_ context.Context, f Failure) error {
	if f.FailedAt.IsZero() {
		f.FailedAt = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.overflow(f, ErrFailureSinkClosed)
		return ErrFailureSinkClosed
	}
	select {
	case s.queue <- f:
		return nil
	default:
		s.overflow(f, ErrFailureQueueFull)
		return ErrFailureQueueFull
	}
}

func (s *AsyncFailureSink) overflow(f Failure, err error) {
	s.metrics.FailureOverflows.Inc()
	logging.LogError("failure sink unavailable, failure kept in log only", err, f.fields())
}

func (s *AsyncFailureSink) run() {
	defer close(s.done)
	for f := range s.queue {
		s.write(f)
	}
}

func (s *AsyncFailureSink) write(f Failure) {
	pending := s.targets
	var err error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		var failed []FailureSink
		var errs []error
		for _, t := range pending {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			if werr := t.Record(ctx, f); werr != nil {
				failed = append(failed, t)
				errs = append(errs, werr)
			}
			cancel()
		}
		if len(failed) == 0 {
			return
		}
		pending, err = failed, errors.Join(errs...)
		if attempt < s.policy.MaxAttempts {
			time.Sleep(s.policy.Backoff(attempt))
		}
	}
	s.metrics.FailureOverflows.Inc()
	logging.LogError("failure sink write failed, failure kept in log only", err, f.fields())
}

// Close stops accepting failures and waits for the queue to drain or ctx to end.
func (s *AsyncFailureSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
