// cmd/producer/main.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	cloudevent "github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	segmentio "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	kaf "github.com/Camillus83/eventmanager/internal/adapters/kafka"
	"github.com/Camillus83/eventmanager/internal/config"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

var (
	usersNames    = []string{"user_registered", "user_logged_in", "user_deleted", "password_changed"}
	productsNames = []string{"product_added", "product_removed", "price_changed", "stock_low"}
	descriptions  = []string{"triggered from web", "triggered from mobile", "batch job", "admin panel"}
)

func main() {
	n := flag.Int("n", 100, "number of random events to produce")
	invalid := flag.Float64("invalid", 0, "share of deliberately broken payloads (0..1)")
	stdin := flag.Bool("stdin", false, "publish stdin lines as raw payloads instead of random events")
	direct := flag.Bool("db", false, "insert random events straight into postgres, bypassing kafka")
	rps := flag.Float64("rate", 0, "messages per second, 0 means unlimited")
	wrap := flag.Bool("cloudevents", false, "wrap random events into structured-mode CloudEvents")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.InitLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *direct {
		if err := seedDB(ctx, cfg, *n); err != nil {
			log.Fatalf("seed db: %v", err)
		}
		return
	}

	prod, err := kaf.NewProducer(kaf.ProducerConfig{
		Brokers:                cfg.Kafka.Brokers,
		ClientID:               cfg.Kafka.ClientID + "-producer",
		RequiredAcks:           segmentio.RequireAll,
		BatchBytes:             1 << 20,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	})
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	defer prod.Close()

	pub := publisher{prod: prod, topic: cfg.Kafka.Topic, cloudEvents: *wrap}
	if *rps > 0 {
		pub.limiter = rate.NewLimiter(rate.Limit(*rps), 1)
	}

	var sent int
	if *stdin {
		sent, err = pub.publishLines(ctx, os.Stdin)
	} else {
		sent, err = pub.publishRandom(ctx, *n, *invalid)
	}
	if err != nil {
		logging.LogError("publish stopped", err, logrus.Fields{"sent": sent})
		os.Exit(1)
	}
	logging.LogInfo("published events", logrus.Fields{"topic": cfg.Kafka.Topic, "sent": sent})
}

func randomInput() domain.Input {
	if rand.Intn(2) == 0 {
		return domain.Input{Source: domain.SourceUsers, Name: usersNames[rand.Intn(len(usersNames))], Description: descriptions[rand.Intn(len(descriptions))]}
	}
	return domain.Input{Source: domain.SourceProducts, Name: productsNames[rand.Intn(len(productsNames))], Description: descriptions[rand.Intn(len(descriptions))]}
}

type publisher struct {
	prod        kaf.Producer
	topic       string
	limiter     *rate.Limiter
	cloudEvents bool
}

var producerHeaders = map[string]string{"x-producer": "cmd/producer"}

func (p publisher) wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

func (p publisher) publishRandom(ctx context.Context, n int, invalid float64) (int, error) {
	for i := 0; i < n; i++ {
		if err := p.wait(ctx); err != nil {
			return i, err
		}
		in := randomInput()
		if rand.Float64() < invalid {
			// битое сообщение: неизвестный source
			in.Source = "orders"
		}
		var err error
		if p.cloudEvents {
			err = p.publishCloudEvent(ctx, in)
		} else {
			err = p.prod.PublishEvent(ctx, p.topic, in, producerHeaders)
		}
		if err != nil {
			return i, err
		}
	}
	return n, nil
}

func (p publisher) publishCloudEvent(ctx context.Context, in domain.Input) error {
	ev := cloudevent.New()
	ev.SetID(uuid.NewString())
	ev.SetSource("eventmanager/producer")
	ev.SetType(in.Source.String() + ".event")
	ev.SetTime(time.Now().UTC())
	if err := ev.SetData(cloudevent.ApplicationJSON, in); err != nil {
		return fmt.Errorf("cloudevent data: %w", err)
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range producerHeaders {
		headers[k] = v
	}
	return p.prod.PublishJSON(ctx, p.topic, []byte(in.Source.String()), ev, headers)
}

func (p publisher) publishLines(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	sent := 0
	for sc.Scan() {
		if err := p.wait(ctx); err != nil {
			return sent, err
		}
		line := append([]byte(nil), sc.Bytes()...)
		if err := p.prod.Publish(ctx, p.topic, nil, line, producerHeaders); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, sc.Err()
}

// seedDB — прямое наполнение таблицы events батчем, как раньше делал сидер.
func seedDB(ctx context.Context, cfg config.Config, n int) error {
	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	now := time.Now()
	for i := 0; i < n; i++ {
		in := randomInput()
		createdAt := now.Add(-time.Duration(rand.Intn(86400)) * time.Second)
		batch.Queue(`
			INSERT INTO events (uuid, name, source, description, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, uuid.NewString(), in.Name, string(in.Source), in.Description, createdAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("events batch close: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logging.LogInfo("seeded events", logrus.Fields{"count": n})
	return nil
}
