package cli

import (
	"context"
	"log/slog"
	"os"

	"audio-interviewer/internal/api"
	"audio-interviewer/internal/config"
	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/interviewer"
	"audio-interviewer/internal/metrics"
	"audio-interviewer/internal/storage"
	"audio-interviewer/internal/storage/azureblob"
	"audio-interviewer/internal/storage/filestore"
	"audio-interviewer/internal/storage/memory"
	"audio-interviewer/internal/storage/mongostore"
	"audio-interviewer/internal/storage/sqlstore"
	"audio-interviewer/internal/telemetry"

	"go.opentelemetry.io/otel/trace"
)

// migrator is implemented by stores that own a schema.
type migrator interface {
	Migrate(ctx context.Context) error
}

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg     *config.AppConfig
	policy  *config.Config
	logger  *slog.Logger
	store   storage.Store
	blobs   storage.BlobStore
	metrics *metrics.Metrics
	tracer  trace.Tracer
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// loadConfig reads dotenv files, the environment and the interview policy.
func loadConfig(opts *rootOptions) (*config.AppConfig, *config.Config, error) {
	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return nil, nil, err
	}
	cfg := config.LoadAppConfig()
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	policy := config.Default()
	if opts.configPath != "" {
		if _, err := os.Stat(opts.configPath); err == nil {
			loaded, err := config.Load(opts.configPath)
			if err != nil {
				return nil, nil, err
			}
			policy = loaded
		}
	}
	return cfg, policy, nil
}

// newApp opens logging, telemetry and storage. The AI backend is built
// separately because only serve needs it.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, policy, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := telemetry.InitLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, policy: policy, logger: logger}
	a.closers = append(a.closers, func() { logCloser.Close() }) //nolint:errcheck

	tracer, meter, shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Options{
		Enabled:    cfg.Telemetry.Enabled,
		TraceFile:  cfg.Telemetry.TraceFile,
		MetricFile: cfg.Telemetry.MetricFile,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.tracer = tracer
	a.metrics = metrics.NewMetrics(meter)
	a.closers = append(a.closers, shutdown)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	})

	blobs, err := openBlobs(ctx, cfg.Blob, store)
	if err != nil {
		a.close()
		return nil, err
	}
	a.blobs = blobs

	logger.Debug("application initialized",
		"store", cfg.Store.Driver,
		"blob", cfg.Blob.Driver,
		"ai", cfg.AI.Backend,
		"max_questions", policy.GetMaxQuestions(),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite, config.StorePostgres:
		driver := sqlstore.DriverPostgres
		if cfg.Driver == config.StoreSQLite {
			driver = sqlstore.DriverSQLite
		}
		st, err := sqlstore.Open(ctx, driver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreMongo:
		st, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, errors.ConfigInvalid("unknown STORE_DRIVER: " + cfg.Driver)
	}
}

func openBlobs(ctx context.Context, cfg config.BlobConfig, store storage.Store) (storage.BlobStore, error) {
	switch cfg.Driver {
	case config.BlobStore:
		return store.Blobs(), nil
	case config.BlobFilesystem:
		fs, err := filestore.New(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.BlobAzure:
		az, err := azureblob.New(ctx, azureblob.Options{
			ConnectionString: cfg.AzureConnectionString,
			AccountURL:       cfg.AzureAccountURL,
			Container:        cfg.AzureContainer,
		})
		if err != nil {
			return nil, err
		}
		return az, nil
	default:
		return nil, errors.ConfigInvalid("unknown BLOB_DRIVER: " + cfg.Driver)
	}
}

// aiBackend is the union the service needs from an AI client.
type aiBackend interface {
	interviewer.QuestionGenerator
	interviewer.Evaluator
}

func (a *app) newAIBackend() aiBackend {
	opts := api.Options{
		BaseURL:   a.cfg.AI.FastAPIBaseURL,
		Timeout:   a.cfg.AI.Timeout,
		Fallbacks: a.policy.Fallbacks,
		Logger:    a.logger,
		Metrics:   a.metrics,
		Tracer:    a.tracer,
	}
	if a.cfg.AI.Backend == config.AIOpenAI {
		return api.NewOpenAIInterviewer(a.cfg.OpenAI, opts)
	}
	return api.NewFastAPIClient(opts)
}

func (a *app) newService() *interviewer.Service {
	ai := a.newAIBackend()
	return interviewer.New(interviewer.Deps{
		Sessions:  a.store.Sessions(),
		Reports:   a.store.Reports(),
		Blobs:     a.blobs,
		Generator: ai,
		Evaluator: ai,
		Config:    a.policy,
		Logger:    a.logger,
		Metrics:   a.metrics,
		Tracer:    a.tracer,
	})
}

// migrate applies the store schema when the backend has one.
func (a *app) migrate(ctx context.Context) error {
	m, ok := a.store.(migrator)
	if !ok {
		return nil
	}
	return m.Migrate(ctx)
}
