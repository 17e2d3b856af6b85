package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/queue"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger/console"
	pgstore "github.com/OFFIS-RIT/consistency-vis/backend/pkg/store/pgx"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnvString("LOG_FORMAT", "text"),
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	graphConfig, err := util.GraphConfigFromEnv()
	if err != nil {
		logger.Fatal("Invalid graph configuration", "err", err)
	}
	builder, err := wordgraph.NewBuilder(graphConfig)
	if err != nil {
		logger.Fatal("Could not create graph builder", "err", err)
	}

	// Init s3 client
	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}
	bucket := storage.NewS3Bucket(
		s3Client,
		util.GetEnvString("AWS_BUCKET", "consistency-vis"),
		util.GetEnvString("AWS_PUBLIC_ENDPOINT", ""),
	)

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	host, _ := os.Hostname()
	processor := &queue.SnapshotProcessor{
		Store:      pgstore.NewDatasetDBStorageWithConnection(pgConn),
		Objects:    bucket,
		Locks:      leaselock.New(pgConn),
		Builder:    builder,
		Backoff:    util.DefaultBackoff,
		LeaseOwner: util.GetEnvString("WORKER_ID", host) + "/",
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.SnapshotQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// prefetch=1, snapshots are built one at a time per worker
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queue.SnapshotQueue,
		queue.SnapshotQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.SnapshotQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.SnapshotQueue)
	queue.Consume(ctx, ch, queue.SnapshotQueue, msgs, processor.ProcessSnapshotMessage)

	logger.Info("Shutdown signal received, exiting...")
}
