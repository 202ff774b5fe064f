package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "scalp-backend/internal/auth"
	"scalp-backend/internal/dispatch"
	"scalp-backend/internal/images"
	"scalp-backend/internal/profile"
	"scalp-backend/internal/progress"
	"scalp-backend/internal/queue"
	"scalp-backend/internal/results"
	"scalp-backend/internal/session"
	"scalp-backend/internal/shared/config"
	"scalp-backend/internal/shared/server"
	"scalp-backend/internal/shared/storage/db"
	"scalp-backend/internal/shared/storage/object"
	localstore "scalp-backend/internal/shared/storage/object/local"
	s3store "scalp-backend/internal/shared/storage/object/s3"
	"scalp-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.ObjectStore
	Queue          queue.Client
	ResultsRepo    results.Repo
	ResultsService *results.Service
	SessionService *session.Service
	SessionHandler *session.Handler
	ResultsHandler *results.Handler
	GoogleAuth     *googleauth.GoogleService
}

// Build prepares dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ImageStore) == "" {
		cfg.ImageStore = "local"
	}
	telemetry.SetLevel(cfg.LogLevel)

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	deps := server.RouterDeps{
		Config:         app.Config,
		SessionHandler: app.SessionHandler,
		ResultsHandler: app.ResultsHandler,
		GoogleAuth:     app.GoogleAuth,
	}
	if sqlDB != nil {
		deps.Ready = func(ctx context.Context) error { return db.Check(ctx, sqlDB) }
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_connect_failed", map[string]any{
				"fallback": "memory",
				"error":    err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildStore returns nil when images go to a remote upload endpoint.
func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ImageStore {
	case "remote":
		if strings.TrimSpace(cfg.UploadURL) == "" {
			return nil, fmt.Errorf("IMAGE_STORE=remote requires UPLOAD_URL")
		}
		return nil, nil
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("IMAGE_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.ResultsQueueURL) == "" {
		return queue.LogClient{}, nil
	}
	return queue.NewSQSClient(ctx, cfg.ResultsQueueURL, cfg.AWSRegion)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildUploader(app *App) images.Uploader {
	if app.Config.ImageStore == "remote" {
		return &images.HTTPUploader{
			URL:    app.Config.UploadURL,
			Client: &http.Client{Timeout: app.Config.UploadTimeout},
		}
	}
	return &images.StoreUploader{Store: app.Store, PublicBaseURL: app.Config.ImagePublicBaseURL}
}

func buildProfileSource(app *App) profile.Source {
	if url := strings.TrimSpace(app.Config.ProfileURL); url != "" {
		return &profile.HTTPSource{BaseURL: url, Client: &http.Client{Timeout: app.Config.UploadTimeout}}
	}
	if app.DB != nil {
		return &profile.PGStore{DB: app.DB}
	}
	return nil
}

func buildServices(app *App) error {
	cfg := app.Config

	var resultsRepo results.Repo
	var profileWriter profile.Writer
	if app.DB != nil {
		resultsRepo = &results.PGRepo{DB: app.DB}
		profileWriter = &profile.PGStore{DB: app.DB}
	} else {
		resultsRepo = results.NewMemoryRepo()
	}

	resultsSvc := &results.Service{
		Repo:     resultsRepo,
		Profiles: profileWriter,
		Queue:    app.Queue,
	}

	acceptor := &images.Acceptor{}
	if url := strings.TrimSpace(cfg.ContentValidatorURL); url != "" {
		acceptor.Validator = &images.HTTPValidator{URL: url, Client: &http.Client{Timeout: cfg.UploadTimeout}}
	}

	dispatcher := &dispatch.Dispatcher{FemaleAdviceFallback: cfg.FemaleAdviceFallback}
	if cfg.ServiceAURL != "" {
		dispatcher.Male = dispatch.NewServiceA(cfg.ServiceAURL, cfg.DispatchTimeout)
	} else {
		telemetry.Warn("bootstrap.service_a_missing", map[string]any{"env": cfg.Env})
	}
	if cfg.ServiceBURL != "" {
		dispatcher.Female = dispatch.NewServiceB(cfg.ServiceBURL, cfg.DispatchTimeout)
	} else {
		telemetry.Warn("bootstrap.service_b_missing", map[string]any{"env": cfg.Env})
	}

	sessionSvc := &session.Service{
		Store:         session.NewStore(cfg.SessionTTL),
		Profiles:      &profile.Reconciler{Source: buildProfileSource(app), EditURL: cfg.ProfileEditURL},
		Acceptor:      acceptor,
		Uploader:      buildUploader(app),
		Dispatcher:    dispatcher,
		Plans:         progress.DefaultCatalog(),
		Simulator:     progress.NewSimulator(nil),
		PhaseScale:    cfg.PhaseScale,
		Handoff:       resultsSvc,
		LoginURL:      cfg.LoginURL,
		UploadTimeout: cfg.UploadTimeout,
	}

	app.ResultsRepo = resultsRepo
	app.ResultsService = resultsSvc
	app.SessionService = sessionSvc
	app.SessionHandler = session.NewHandler(sessionSvc, cfg.CORSAllowOrigin)
	app.ResultsHandler = results.NewHandler(resultsSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
	)

	if app.SessionHandler == nil || app.ResultsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
