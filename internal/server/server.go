package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/queue"
	mid "github.com/OFFIS-RIT/consistency-vis/backend/internal/server/middleware"
	serverutil "github.com/OFFIS-RIT/consistency-vis/backend/internal/server/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai"
	oai "github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai/openai"
	loaderio "github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader/io"
	loaders3 "github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader/s3"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store/memory"
	pgstore "github.com/OFFIS-RIT/consistency-vis/backend/pkg/store/pgx"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New returns an echo instance serving app with the standard middleware
// stack and all routes registered.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("BODY_LIMIT", "32M")))

	RegisterRoutes(e)
	return e
}

func newSampler() ai.Sampler {
	model := util.GetEnv("AI_CHAT_MODEL")
	if model == "" {
		logger.Warn("AI_CHAT_MODEL not set, live generation disabled")
		return nil
	}

	switch util.GetEnvString("AI_ADAPTER", "openai") {
	case "ollama":
		client, err := oai.NewSamplerOllamaClient(oai.NewSamplerOllamaClientParams{
			Model:       model,
			Temperature: util.GetEnvNumeric("AI_TEMPERATURE", 1),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewSamplerOpenAIClient(gai.NewSamplerOpenAIClientParams{
			Model:       model,
			Temperature: util.GetEnvNumeric("AI_TEMPERATURE", 1),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			ParallelRequests:  util.GetEnvInt("AI_PARALLEL_REQ", 15),
			RequestsPerSecond: util.GetEnvNumeric("AI_REQ_PER_SECOND", 0),
		})
	}
}

// Init wires the application from the environment and serves until SIGINT
// or SIGTERM. Services without configuration fall back to in-process
// stand-ins (database, object storage) or are disabled (queue, generation,
// JWT auth).
func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	graphConfig, err := util.GraphConfigFromEnv()
	if err != nil {
		logger.Fatal("Invalid graph configuration", "err", err)
	}
	builder, err := wordgraph.NewBuilder(graphConfig)
	if err != nil {
		logger.Fatal("Failed to create graph builder", "err", err)
	}

	sessions := serverutil.NewSessionRegistry(builder, util.GetEnvDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute))
	defer sessions.Close()

	app := &mid.App{
		Builder:        builder,
		Sessions:       sessions,
		Sampler:        newSampler(),
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   util.GetEnv("MASTER_USER_ID"),
		MasterUserRole: util.GetEnvString("MASTER_USER_ROLE", "admin"),
	}

	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefaultCtx(ctx, []string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Key = k.Keyfunc
	} else {
		logger.Warn("AUTH_URL not set, only the master API key is accepted")
	}

	if databaseURL := util.GetEnv("DATABASE_URL"); databaseURL != "" {
		if err := pgstore.Migrate(databaseURL, util.GetEnvString("MIGRATIONS_PATH", "migrations")); err != nil {
			logger.Fatal("Failed to apply migrations", "err", err)
		}
		conn, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer conn.Close()
		app.Store = pgstore.NewDatasetDBStorageWithConnection(conn)
	} else {
		logger.Warn("DATABASE_URL not set, datasets are kept in memory")
		app.Store = memory.NewDatasetMemoryStorage()
	}

	if util.GetEnv("AWS_ENDPOINT") != "" || util.GetEnv("AWS_REGION") != "" {
		s3Client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		bucket := util.GetEnvString("AWS_BUCKET", "consistency-vis")
		app.Objects = storage.NewS3Bucket(s3Client, bucket, util.GetEnv("AWS_PUBLIC_ENDPOINT"))
		app.Importer = loaders3.NewS3DatasetLoaderWithClient(bucket, s3Client)
	} else {
		logger.Warn("S3 not configured, snapshots are kept in memory and imports read from IMPORT_DIR")
		app.Objects = storage.NewMemoryStore(util.GetEnvString("PUBLIC_URL", "http://localhost:8080") + "/files")
		app.Importer = loaderio.NewIODatasetLoader(util.GetEnvString("IMPORT_DIR", "./datasets"))
	}

	if util.GetEnv("RABBITMQ_HOST") != "" {
		que := queue.Init()
		defer que.Close()
		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.SnapshotQueue}); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		app.Queue = ch
	} else {
		logger.Warn("RABBITMQ_HOST not set, snapshot builds are disabled")
	}

	e := New(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
