package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/app/events"
	"github.com/Camillus83/eventmanager/internal/logging"
	"github.com/Camillus83/eventmanager/internal/metrics"
)

type ConsumerConfig struct {
	// PartitionBuffer is the backlog at which a partition is reported as
	// backed up. It does not stop fetching for other partitions.
	PartitionBuffer int
	// MaxBuffered caps fetched but unstarted messages across all partitions.
	// Fetching pauses only at this cap.
	MaxBuffered int
	// CommitTimeout bounds a single commit; commits run even after shutdown
	// began, for messages that already reached a terminal outcome.
	CommitTimeout time.Duration
	// FetchBackoff is the pause after a fetch error.
	FetchBackoff time.Duration
}

type partitionKey struct {
	topic     string
	partition int
}

// partitionWorker owns a growable queue, so pushing never blocks the fetch
// loop on one slow partition.
type partitionWorker struct {
	key       partitionKey
	committed int64

	mu       sync.Mutex
	queue    []Message
	closed   bool
	backedUp bool
	wake     chan struct{}
}

func (w *partitionWorker) push(m Message, threshold int) (crossed bool) {
	w.mu.Lock()
	w.queue = append(w.queue, m)
	if len(w.queue) >= threshold && !w.backedUp {
		w.backedUp, crossed = true, true
	}
	w.mu.Unlock()
	signal(w.wake)
	return crossed
}

// pop waits for the next message. It reports false when the queue is closed
// and empty, or when ctx is done.
func (w *partitionWorker) pop(ctx context.Context) (Message, bool) {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			m := w.queue[0]
			w.queue[0] = Message{}
			w.queue = w.queue[1:]
			if len(w.queue) == 0 {
				w.backedUp = false
			}
			w.mu.Unlock()
			return m, true
		}
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return Message{}, false
		}

		select {
		case <-ctx.Done():
			return Message{}, false
		case <-w.wake:
		}
	}
}

func (w *partitionWorker) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	signal(w.wake)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Consumer reads a Stream and feeds the Dispatcher, one goroutine per
// partition. Within a partition a message is not started until the previous
// one is terminal and its commit has been issued.
type Consumer struct {
	stream     Stream
	dispatcher *Dispatcher
	failures   FailureSink
	metrics    *metrics.Pipeline
	cfg        ConsumerConfig

	mu       sync.Mutex
	workers  map[partitionKey]*partitionWorker
	wg       sync.WaitGroup
	buffered atomic.Int64
	room     chan struct{}
}

func NewConsumer(stream Stream, dispatcher *Dispatcher, failures FailureSink, m *metrics.Pipeline, cfg ConsumerConfig) *Consumer {
	if cfg.PartitionBuffer <= 0 {
		cfg.PartitionBuffer = 64
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = 4096
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 5 * time.Second
	}
	if cfg.FetchBackoff <= 0 {
		cfg.FetchBackoff = 200 * time.Millisecond
	}
	if failures == nil {
		failures = LogFailureSink{}
	}
	if m == nil {
		m = metrics.NewPipeline(nil)
	}
	return &Consumer{
		stream:     stream,
		dispatcher: dispatcher,
		failures:   failures,
		metrics:    m,
		cfg:        cfg,
		workers:    make(map[partitionKey]*partitionWorker),
		room:       make(chan struct{}, 1),
	}
}

// Run pulls messages until ctx is cancelled or the stream closes, then waits
// for partition workers to stop. Cancellation is a clean exit.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.stopWorkers()

	for {
		if !c.waitForRoom(ctx) {
			return nil
		}
		msg, err := c.stream.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				logging.LogInfo("consumer stopping", logrus.Fields{"reason": "context done"})
				return nil
			}
			if errors.Is(err, ErrStreamClosed) || errors.Is(err, io.EOF) {
				logging.LogInfo("consumer stopping", logrus.Fields{"reason": "stream closed"})
				return nil
			}
			logging.LogError("fetch failed", err, logrus.Fields{})
			if serr := sleepCtx(ctx, c.cfg.FetchBackoff); serr != nil {
				return nil
			}
			continue
		}

		w := c.worker(ctx, partitionKey{topic: msg.Topic, partition: msg.Partition})
		c.buffered.Add(1)
		if w.push(msg, c.cfg.PartitionBuffer) {
			logging.LogWarn("partition backed up", logrus.Fields{
				"topic": msg.Topic, "partition": msg.Partition, "backlog": c.cfg.PartitionBuffer,
			})
		}
	}
}

// waitForRoom blocks while MaxBuffered messages are queued. It reports false
// when ctx ends first.
func (c *Consumer) waitForRoom(ctx context.Context) bool {
	for c.buffered.Load() >= int64(c.cfg.MaxBuffered) {
		select {
		case <-ctx.Done():
			return false
		case <-c.room:
		}
	}
	return true
}

func (c *Consumer) worker(ctx context.Context, key partitionKey) *partitionWorker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.workers[key]; ok {
		return w
	}
	w := &partitionWorker{
		key:       key,
		committed: -1,
		queue:     make([]Message, 0, c.cfg.PartitionBuffer),
		wake:      make(chan struct{}, 1),
	}
	c.workers[key] = w
	c.wg.Add(1)
	go c.runWorker(ctx, w)
	logging.LogDebug("partition worker started", logrus.Fields{"topic": key.topic, "partition": key.partition})
	return w
}

func (c *Consumer) stopWorkers() {
	c.mu.Lock()
	for _, w := range c.workers {
		w.close()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Consumer) runWorker(ctx context.Context, w *partitionWorker) {
	defer c.wg.Done()

	for {
		msg, ok := w.pop(ctx)
		if !ok {
			return
		}
		c.buffered.Add(-1)
		signal(c.room)

		// не начинаем новое сообщение после сигнала остановки
		if ctx.Err() != nil {
			return
		}
		if err := c.process(ctx, msg); err != nil {
			logging.LogInfo("partition worker abandoned in-flight message", logrus.Fields{
				"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset, "error": err.Error(),
			})
			return
		}
		c.commit(ctx, w, msg)
	}
}

// process drives one message to a terminal outcome. It returns an error only
// when the outcome is not terminal and the message must stay uncommitted.
func (c *Consumer) process(ctx context.Context, msg Message) error {
	started := time.Now()
	defer func() { c.metrics.DispatchDuration.Observe(time.Since(started).Seconds()) }()

	in, err := Decode(msg.Value)
	if err != nil {
		class := ClassDecode
		if errors.Is(err, events.ErrInvalidData) {
			class = ClassValidation
		}
		c.fail(ctx, Failure{Message: msg, Class: class, Reason: err.Error()})
		return nil
	}

	out, err := c.dispatcher.Handle(ctx, in)
	if err != nil {
		c.metrics.Messages.WithLabelValues("aborted").Inc()
		return err
	}

	switch out.Status {
	case Succeeded:
		c.metrics.Messages.WithLabelValues("succeeded").Inc()
		logging.LogInfo("event created", logrus.Fields{
			"uuid": out.Event.UUID, "source": in.Source, "name": in.Name,
			"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset, "attempts": out.Attempts,
		})
	default:
		c.fail(ctx, Failure{Message: msg, Input: &in, Class: out.Class, Reason: out.Reason, Attempts: out.Attempts})
	}
	return nil
}

func (c *Consumer) fail(ctx context.Context, f Failure) {
	c.metrics.Messages.WithLabelValues("failed").Inc()
	c.metrics.Failures.WithLabelValues(string(f.Class)).Inc()
	if f.FailedAt.IsZero() {
		f.FailedAt = time.Now().UTC()
	}
	logging.LogWarn("message routed to failure sink", f.fields())
	if err := c.failures.Record(ctx, f); err != nil {
		logging.LogError("failure sink record failed", err, logrus.Fields{
			"topic": f.Message.Topic, "partition": f.Message.Partition, "offset": f.Message.Offset,
		})
	}
}

// commit runs on a context detached from shutdown: the outcome is already
// terminal, so its offset should land even while the process is stopping.
func (c *Consumer) commit(ctx context.Context, w *partitionWorker, msg Message) {
	if msg.Offset <= w.committed {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CommitTimeout)
	defer cancel()

	if err := c.stream.Commit(cctx, msg); err != nil {
		c.metrics.CommitErrors.Inc()
		logging.LogError("offset commit failed", err, logrus.Fields{
			"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset,
		})
		return
	}
	w.committed = msg.Offset
}
