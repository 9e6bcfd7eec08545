package batch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Sukudo1234/sudoai-mvp/backoff"
)

// Handler processes one dequeued message. A nil return deletes the message;
// an error leaves it for redelivery after the visibility timeout.
type Handler func(ctx context.Context, msg Message) error

// Consumer pulls messages off the managed queue and hands them to a
// Handler. Multiple consumer processes pull independently; SQS visibility
// semantics provide the only coordination.
type Consumer struct {
	client  *sqs.Client
	logger  *slog.Logger
	backoff backoff.Strategy

	queueURL          string
	visibilityTimeout time.Duration
	waitTime          time.Duration
}

// ConsumerOption configures the Consumer.
type ConsumerOption func(*Consumer)

// WithConsumerLogger sets the logger.
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithBackoff sets the delay strategy used between empty polls and after
// receive errors.
func WithBackoff(s backoff.Strategy) ConsumerOption {
	return func(c *Consumer) {
		c.backoff = s
	}
}

// NewConsumer returns a Consumer for the given queue.
func NewConsumer(client *sqs.Client, queueURL string, visibilityTimeout time.Duration, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:            client,
		logger:            slog.Default(),
		backoff:           backoff.DefaultStrategy(),
		queueURL:          queueURL,
		visibilityTimeout: visibilityTimeout,
		waitTime:          20 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled. Each received message is decoded and
// passed to handle; undecodable messages are deleted rather than redriven
// forever.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	idle := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     int32(c.waitTime / time.Second),
			VisibilityTimeout:   int32(c.visibilityTimeout / time.Second),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			idle++
			delay := c.backoff.Delay(idle)
			c.logger.Warn("queue receive failed", "error", err, "retry_in", delay)
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
			continue
		}

		if len(out.Messages) == 0 {
			idle++
			if !sleepCtx(ctx, c.backoff.Delay(idle)) {
				return ctx.Err()
			}
			continue
		}
		idle = 0

		for _, raw := range out.Messages {
			var msg Message
			if err := json.Unmarshal([]byte(aws.ToString(raw.Body)), &msg); err != nil {
				c.logger.Error("dropping undecodable queue message",
					"message_id", aws.ToString(raw.MessageId), "error", err)
				c.delete(ctx, raw.ReceiptHandle)
				continue
			}

			if err := handle(ctx, msg); err != nil {
				// Leave the message for redelivery after the visibility
				// timeout expires.
				c.logger.Error("message handling failed",
					"task_id", msg.TaskID, "type", msg.JobType, "error", err)
				continue
			}

			c.delete(ctx, raw.ReceiptHandle)
		}
	}
}

func (c *Consumer) delete(ctx context.Context, receipt *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receipt,
	})
	if err != nil {
		c.logger.Warn("queue delete failed", "error", err)
	}
}

// sleepCtx sleeps for d or until ctx is cancelled. Reports whether the
// full sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
