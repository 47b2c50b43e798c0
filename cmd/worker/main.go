package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/yungbote/transcoderd/internal/broker"
	"github.com/yungbote/transcoderd/internal/db"
	"github.com/yungbote/transcoderd/internal/observability"
	"github.com/yungbote/transcoderd/internal/pipeline"
	"github.com/yungbote/transcoderd/internal/platform/blob"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/platform/shutdown"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/utils"
	"github.com/yungbote/transcoderd/internal/worker"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	baseLog, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer baseLog.Sync()

	workerID := utils.InstanceID()
	log := baseLog.With("worker_id", workerID)
	log.Info("Worker starting")

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "transcoderd-worker",
		Environment: utils.GetEnv("APP_ENV", "development", log),
	})
	defer func() {
		_ = otelShutdown(context.Background())
	}()

	// The API owns the schema; the worker only needs a connection.
	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Could not connect to Postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	jobRepo := repos.NewJobRepo(pg.DB(), log)

	store, err := blob.NewStore(log)
	if err != nil {
		log.Error("Could not init blob store", "error", err)
		os.Exit(1)
	}

	engine, err := pipeline.NewGstLaunch(log)
	if err != nil {
		log.Error("Could not init pipeline engine", "error", err)
		os.Exit(1)
	}

	b, err := broker.Connect(ctx, broker.LoadConfig(log), log)
	if err != nil {
		log.Error("Could not connect to broker", "error", err)
		os.Exit(1)
	}
	defer b.Close()
	if err := b.DeclareWorkerTopology(ctx, workerID); err != nil {
		log.Error("Could not declare broker topology", "error", err)
		os.Exit(1)
	}

	runner := worker.NewRunner(log, workerID, jobRepo, store, engine, b, b)
	log.Info("Waiting for transcoding jobs...")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Worker exited", "error", err)
		os.Exit(1)
	}
	log.Info("Worker stopped")
}
