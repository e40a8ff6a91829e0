package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Camillus83/eventmanager/internal/ingest"
)

// Заголовки сообщения в DLQ.
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderFailureClass      = "x-failure-class"
	HeaderFailureReason     = "x-failure-reason"
	HeaderAttempts          = "x-failure-attempts"
	HeaderFailedAt          = "x-failed-at"
)

// DLQ republishes the raw payload of a failed message to a dead-letter topic,
// with the failure described in headers.
type DLQ struct {
	producer Producer
	topic    string
}

func NewDLQ(p Producer, topic string) *DLQ {
	return &DLQ{producer: p, topic: topic}
}

func (d *DLQ) Record(ctx context.Context, f ingest.Failure) error {
	failedAt := f.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}
	headers := map[string]string{
		HeaderOriginalTopic:     f.Message.Topic,
		HeaderOriginalPartition: strconv.Itoa(f.Message.Partition),
		HeaderOriginalOffset:    strconv.FormatInt(f.Message.Offset, 10),
		HeaderFailureClass:      string(f.Class),
		HeaderFailureReason:     f.Reason,
		HeaderAttempts:          strconv.Itoa(f.Attempts),
		HeaderFailedAt:          failedAt.Format(time.RFC3339Nano),
	}
	if err := d.producer.Publish(ctx, d.topic, f.Message.Key, f.Message.Value, headers); err != nil {
		return fmt.Errorf("dlq publish to %s: %w", d.topic, err)
	}
	return nil
}
