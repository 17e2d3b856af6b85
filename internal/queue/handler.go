package queue

import (
	"context"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// retries reads the x-retries header. Headers that went through the broker
// come back as int64 even when published as int32.
func retries(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleProcessingError moves a failed delivery to the retry queue, or to the
// dead letter queue once MaxRetries is reached. The original delivery is
// acked only after the copy has been published.
func HandleProcessingError(ch Channel, msg amqp091.Delivery, queueName string) {
	n := retries(msg.Headers)

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	target := queueName + "_retry"
	if n >= MaxRetries {
		target = queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", target)
	} else {
		headers["x-retries"] = int32(n + 1)
	}

	if err := publish(ch, target, msg.Body, headers); err != nil {
		logger.Error("[Queue] Failed to publish failed message", "queue", target, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Consume handles deliveries one at a time until ctx ends or the delivery
// channel closes. Failed messages go through HandleProcessingError.
func Consume(ctx context.Context, ch Channel, queueName string, deliveries <-chan amqp091.Delivery, handle Handler) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", queueName)
			return
		case msg, ok := <-deliveries:
			if !ok {
				logger.Info("[Queue] Message channel closed", "queue", queueName)
				return
			}
			logger.Info("[Queue] Received message", "queue", queueName)

			if err := handle(ctx, msg.Body); err != nil {
				logger.Error("[Queue] Error processing message", "queue", queueName, "err", err)
				HandleProcessingError(ch, msg, queueName)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("[Queue] Failed to ack message", "err", err)
			}
		}
	}
}
