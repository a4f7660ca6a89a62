package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/conversations"
	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/ragflow"
	"pdfchat-backend/internal/services/health"
	"pdfchat-backend/internal/shared/config"
	"pdfchat-backend/internal/shared/server"
	"pdfchat-backend/internal/shared/storage/db"
	"pdfchat-backend/internal/shared/storage/object"
	localstore "pdfchat-backend/internal/shared/storage/object/local"
	s3store "pdfchat-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	Gateway       ragflow.Gateway
	GatewayClient *ragflow.Client

	DocumentsRepo     documents.Repo
	ConversationsRepo conversations.Repo

	Tracker              *documents.Tracker
	DocumentsService     *documents.Service
	ConversationsService *conversations.Service
	HealthService        *health.Service

	DocumentsHandler     *documents.Handler
	ConversationsHandler *conversations.Handler
	HealthHandler        *health.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := ragflow.NewClient(cfg.RAGFlowAPIURL, cfg.RAGFlowAPIKey)
	if err != nil {
		return nil, fmt.Errorf("ragflow client: %w", err)
	}

	app := &App{
		Config:        cfg,
		DB:            sqlDB,
		Store:         store,
		Gateway:       gateway,
		GatewayClient: gateway,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:               app.Config,
		HealthHandler:        app.HealthHandler,
		DocumentsHandler:     app.DocumentsHandler,
		ConversationsHandler: app.ConversationsHandler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	var docRepo documents.Repo
	var convRepo conversations.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		convRepo = &conversations.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		convRepo = conversations.NewMemoryRepo()
	}

	tracker := &documents.Tracker{
		Repo:        docRepo,
		Gateway:     app.Gateway,
		Interval:    app.Config.PollInterval,
		MaxAttempts: app.Config.PollMaxAttempts,
	}
	docSvc := &documents.Service{
		Repo:           docRepo,
		Refs:           convRepo,
		Store:          app.Store,
		Gateway:        app.Gateway,
		Tracker:        tracker,
		MaxUploadBytes: app.Config.MaxUploadBytes,
	}
	convSvc := &conversations.Service{
		Repo:    convRepo,
		Docs:    docRepo,
		Gateway: app.Gateway,
	}

	uploadDir := ""
	if app.Config.ObjectStoreType == "local" {
		uploadDir = app.Config.LocalStoreDir
	}
	healthSvc := health.NewService(app.DB, app.GatewayClient, uploadDir)

	app.DocumentsRepo = docRepo
	app.ConversationsRepo = convRepo
	app.Tracker = tracker
	app.DocumentsService = docSvc
	app.ConversationsService = convSvc
	app.HealthService = healthSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ConversationsHandler = conversations.NewHandler(convSvc)
	app.HealthHandler = health.NewHandler(healthSvc)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
