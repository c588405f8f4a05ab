package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tradl-labs/newsgraph/internal/bootstrap"
	"github.com/tradl-labs/newsgraph/internal/config"
	"github.com/tradl-labs/newsgraph/internal/feed"
	"github.com/tradl-labs/newsgraph/internal/queue"
	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/dedup"
	"github.com/tradl-labs/newsgraph/pkg/leaselock"
	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/logger/console"
	"github.com/tradl-labs/newsgraph/pkg/pipeline"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	storage, pool, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", "err", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	if err := bootstrap.SeedKnowledgeBase(ctx, storage); err != nil {
		logger.Fatal("Failed to seed knowledge base", "err", err)
	}

	providers, err := bootstrap.NewProviders(cfg)
	if err != nil {
		logger.Fatal("Failed to create AI providers", "err", err)
	}

	threshold := dedup.NewThreshold(cfg.DedupThreshold)
	p, err := pipeline.NewPipeline(pipeline.NewPipelineParams{
		Storage:   storage,
		Providers: providers,

		DedupThreshold: threshold,
		FuzzyThreshold: cfg.FuzzyThreshold,
		RankSimWeight:  cfg.RankSimWeight,
		Workers:        cfg.Workers,
		CallTimeout:    cfg.CallTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}

	tuner := dedup.NewTuner(dedup.NewTunerParams{
		Log:       storage,
		Threshold: threshold,
	})

	fetcher := feed.NewFetcher()

	// Init rabbitmq
	conn := queue.Init(cfg)
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// Singleton jobs run under a lease so replicas never double-run them.
	// Without postgres there is nothing to lease against; assume a single
	// worker then.
	runExclusive := func(ctx context.Context, key string, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	if pool != nil {
		locker := leaselock.New(pool)
		runExclusive = func(ctx context.Context, key string, fn func(ctx context.Context) error) error {
			err := locker.TryRun(ctx, key, fn)
			if errors.Is(err, leaselock.ErrBusy) {
				return nil
			}
			return err
		}
	}

	if len(cfg.FeedURLs) > 0 {
		interval := util.GetEnvDuration("FEED_POLL_INTERVAL", 15*time.Minute)
		go pollFeeds(ctx, ch, cfg.FeedURLs, interval, runExclusive)
	}

	tuneInterval := util.GetEnvDuration("TUNE_INTERVAL", time.Hour)
	tuneLookback := util.GetEnvDuration("TUNE_LOOKBACK", 24*time.Hour)
	go tuneThreshold(ctx, tuner, tuneInterval, tuneLookback, runExclusive)

	logger.Info("Listening for messages")

	// A single consumer channel with prefetch=1 so only one message is
	// in flight at a time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = queue.ProcessIngestMessage(ctx, p, qm.msg.Body)
				case queue.FeedQueue:
					processingErr = queue.ProcessFeedMessage(ctx, p, fetcher, qm.msg.Body)
				}

				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully",
						"queue", qm.queueName,
						"duration", time.Since(startTime).Round(time.Millisecond),
					)
				}
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

// pollFeeds enqueues every configured feed once at startup and then on each
// tick. Runs exclusively so replicated workers fetch each feed once.
func pollFeeds(ctx context.Context, ch *amqp.Channel, urls []string, interval time.Duration, runExclusive func(context.Context, string, func(context.Context) error) error) {
	publish := func(ctx context.Context) error {
		for _, url := range urls {
			if err := queue.PublishFeedRequest(ch, url); err != nil {
				return fmt.Errorf("enqueueing feed %s: %w", url, err)
			}
		}
		return nil
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if err := runExclusive(ctx, "poll_feeds", publish); err != nil {
			logger.Error("Feed polling failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// tuneThreshold periodically adjusts the dedup threshold from the recent
// decision log.
func tuneThreshold(ctx context.Context, tuner *dedup.Tuner, interval time.Duration, lookback time.Duration, runExclusive func(context.Context, string, func(context.Context) error) error) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		err := runExclusive(ctx, "tune_threshold", func(ctx context.Context) error {
			value, err := tuner.Tune(ctx, time.Now().Add(-lookback), nil)
			if err != nil {
				return err
			}
			logger.Info("Dedup threshold tuned", "threshold", value)
			return nil
		})
		if err != nil {
			logger.Error("Threshold tuning failed", "err", err)
		}
	}
}
