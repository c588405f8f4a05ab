package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tradl-labs/newsgraph/internal/bootstrap"
	"github.com/tradl-labs/newsgraph/internal/config"
	"github.com/tradl-labs/newsgraph/internal/queue"
	"github.com/tradl-labs/newsgraph/internal/server"
	"github.com/tradl-labs/newsgraph/internal/server/middleware"
	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/dedup"
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

	// Without a broker the API processes every batch inline.
	var queueCh *amqp091.Channel
	if cfg.RabbitMQHost != "" {
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
		queueCh = ch
	}

	server.Run(ctx, &middleware.App{
		Pipeline: p,
		Tuner:    tuner,
		Queue:    queueCh,
		Config:   cfg,
	})
}
