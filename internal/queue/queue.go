package queue

import (
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tradl-labs/newsgraph/internal/config"
	"github.com/tradl-labs/newsgraph/pkg/logger"
)

const (
	// IngestQueue carries JSON batches of raw articles.
	IngestQueue = "ingest_queue"
	// FeedQueue carries JSON feed fetch requests.
	FeedQueue = "feed_queue"

	// retryTTL is how long a failed message parks in the retry queue
	// before being redelivered.
	retryTTL = int32(10000)
)

// Queues lists every consumable queue the worker serves.
var Queues = []string{IngestQueue, FeedQueue}

func Init(cfg config.Config) *amqp091.Connection {
	conn, err := amqp091.Dial(cfg.RabbitMQURL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares each queue with its dead-letter and retry
// companions. The retry queue dead-letters back into the main queue after
// its TTL, giving failed messages a delayed redelivery.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			logger.Fatal("QueueDeclare failed", "queue", name, "err", err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			logger.Fatal("QueueDeclare failed", "queue", dlqName, "err", err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             retryTTL,
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			logger.Fatal("QueueDeclare failed", "queue", retryName, "err", err)
		}
	}

	return nil
}

func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	err = ch.Publish(
		"",
		q.Name,
		false,
		false,
		publishing,
	)
	if err != nil {
		return err
	}

	return nil
}
