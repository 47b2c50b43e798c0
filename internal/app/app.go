package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/broker"
	"github.com/yungbote/transcoderd/internal/consumer"
	"github.com/yungbote/transcoderd/internal/db"
	"github.com/yungbote/transcoderd/internal/events"
	"github.com/yungbote/transcoderd/internal/http"
	"github.com/yungbote/transcoderd/internal/observability"
	"github.com/yungbote/transcoderd/internal/platform/blob"
	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/progress"
	"github.com/yungbote/transcoderd/internal/seeds"
)

// App owns the coordinator process: the HTTP surface, the broker consumers
// and the stall detector, plus the shared tracker and subscriber registry
// they fan job events through.
type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Tracker  *progress.Tracker
	Events   *events.Manager

	pg           *db.PostgresService
	broker       *broker.Broker
	consumer     *consumer.Consumer
	stall        *consumer.StallDetector
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	baseLog, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	baseLog.Info("Loading environment variables...")
	cfg := LoadConfig(baseLog)
	log := baseLog.With("api_id", cfg.InstanceID)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "transcoderd-api",
		Environment: cfg.Environment,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	b, err := broker.Connect(ctx, broker.LoadConfig(log), log)
	if err != nil {
		pg.Close()
		log.Sync()
		return nil, fmt.Errorf("init broker: %w", err)
	}
	if err := b.DeclareAPITopology(ctx); err != nil {
		b.Close()
		pg.Close()
		log.Sync()
		return nil, fmt.Errorf("declare broker topology: %w", err)
	}

	tracker := progress.NewTracker()
	eventManager := events.NewManager(log)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, reposet, b)

	if err := seeds.NewSeeder(log, reposet.Presets).SeedPresets(dbctx.From(ctx)); err != nil {
		log.Warn("Preset seeding failed", "error", err)
	}

	// The blob store is only needed by the upload/download routes; the job
	// surface keeps working without it.
	store, err := blob.NewStore(log)
	if err != nil {
		log.Warn("Could not init blob store, upload/download routes disabled", "error", err)
		store = nil
	}

	handlerset := wireHandlers(log, serviceset, store, tracker, eventManager)
	router := wireRouter(log, handlerset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Tracker:      tracker,
		Events:       eventManager,
		pg:           pg,
		broker:       b,
		consumer:     consumer.NewConsumer(log, b, reposet.Jobs, tracker, eventManager),
		stall:        consumer.NewStallDetector(log, reposet.Jobs, tracker, eventManager),
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and drives the progress/results consumers and the stall
// sweep until ctx is cancelled, then drains the HTTP server.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}

	srv := http.NewServer(a.Cfg.HTTPAddr, a.Router)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.consumer.Run(ctx)
	})
	g.Go(func() error {
		return a.stall.Run(ctx)
	})
	g.Go(func() error {
		a.Log.Info("Server listening", "addr", a.Cfg.HTTPAddr)
		return srv.Serve(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.Log.Warn("Broker close failed", "error", err)
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("Postgres close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
