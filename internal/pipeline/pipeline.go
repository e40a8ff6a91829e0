// Package pipeline assembles the ingestion pipeline from config: kafka reader,
// dispatcher, failure sinks and the partition consumer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	segmentio "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	kaf "github.com/Camillus83/eventmanager/internal/adapters/kafka"
	"github.com/Camillus83/eventmanager/internal/adapters/repo"
	"github.com/Camillus83/eventmanager/internal/app/events"
	"github.com/Camillus83/eventmanager/internal/config"
	"github.com/Camillus83/eventmanager/internal/ingest"
	"github.com/Camillus83/eventmanager/internal/logging"
	"github.com/Camillus83/eventmanager/internal/metrics"
)

const sinkDrainTimeout = 10 * time.Second

type Deps struct {
	Config config.Config
	// Store is where events are created: the HTTP store client, or the
	// service itself when the pipeline is embedded in the API server.
	Store events.EventCreator
	// Pool is required for the "postgres" and "both" failure sinks.
	Pool       *pgxpool.Pool
	Registerer prometheus.Registerer
}

type Pipeline struct {
	consumer *ingest.Consumer
	reader   *kaf.Reader
	sink     *ingest.AsyncFailureSink
	producer kaf.Producer
}

func New(d Deps) (*Pipeline, error) {
	if d.Store == nil {
		return nil, errors.New("pipeline: event store is required")
	}
	cfg := d.Config
	m := metrics.NewPipeline(d.Registerer)
	p := &Pipeline{}

	var sinks ingest.MultiFailureSink
	switch cfg.Failures.Sink {
	case "postgres", "both":
		if d.Pool == nil {
			return nil, fmt.Errorf("pipeline: failure sink %q needs postgres", cfg.Failures.Sink)
		}
		sinks = append(sinks, repo.NewFailureRepo(d.Pool))
	}
	switch cfg.Failures.Sink {
	case "kafka", "both":
		prod, err := kaf.NewProducer(kaf.ProducerConfig{
			Brokers:                cfg.Kafka.Brokers,
			ClientID:               cfg.Kafka.ClientID + "-dlq",
			RequiredAcks:           segmentio.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
			AllowAutoTopicCreation: true,
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: dlq producer: %w", err)
		}
		p.producer = prod
		sinks = append(sinks, kaf.NewDLQ(prod, cfg.Kafka.DLQ))
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("pipeline: unknown failure sink %q", cfg.Failures.Sink)
	}

	var next ingest.FailureSink = sinks
	if len(sinks) == 1 {
		next = sinks[0]
	}
	p.sink = ingest.NewAsyncFailureSink(next, cfg.Failures.QueueSize, m)

	reader, err := kaf.NewReader(kaf.ReaderConfig{
		Brokers:           cfg.Kafka.Brokers,
		ClientID:          cfg.Kafka.ClientID,
		Topic:             cfg.Kafka.Topic,
		GroupID:           cfg.Kafka.Group,
		MinBytes:          1,
		MaxBytes:          10 << 20,
		MaxWait:           cfg.Kafka.MaxWait,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  10 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		StartOffset:       kaf.StartOffset(cfg.Kafka.StartOffset),
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	p.reader = reader

	dispatcher := ingest.NewDispatcher(d.Store, ingest.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      0.1,
	}, ingest.WithDispatcherMetrics(m), ingest.WithCallTimeout(cfg.Store.Timeout))

	p.consumer = ingest.NewConsumer(reader, dispatcher, p.sink, m, ingest.ConsumerConfig{
		PartitionBuffer: cfg.Consumer.PartitionBuffer,
		MaxBuffered:     cfg.Consumer.MaxBuffered,
	})

	logging.LogInfo("ingest pipeline assembled", logrus.Fields{
		"topic":         cfg.Kafka.Topic,
		"group":         cfg.Kafka.Group,
		"failure_sink":  cfg.Failures.Sink,
		"max_attempts":  cfg.Retry.MaxAttempts,
		"brokers":       cfg.Kafka.Brokers,
		"start_offset":  cfg.Kafka.StartOffset,
		"partition_buf": cfg.Consumer.PartitionBuffer,
	})
	return p, nil
}

// Run consumes until ctx is cancelled, then shuts down in order: workers
// finish their in-flight attempt, queued failures drain, the reader closes.
func (p *Pipeline) Run(ctx context.Context) error {
	err := p.consumer.Run(ctx)
	p.Close()
	return err
}

func (p *Pipeline) Close() {
	if p.sink != nil {
		dctx, cancel := context.WithTimeout(context.Background(), sinkDrainTimeout)
		if err := p.sink.Close(dctx); err != nil {
			logging.LogError("failure sink did not drain", err, logrus.Fields{})
		}
		cancel()
		p.sink = nil
	}
	if p.reader != nil {
		if err := p.reader.Close(); err != nil {
			logging.LogError("kafka reader close failed", err, logrus.Fields{})
		}
		p.reader = nil
	}
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			logging.LogError("dlq producer close failed", err, logrus.Fields{})
		}
		p.producer = nil
	}
}
