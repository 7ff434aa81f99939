// Package server initializes and runs the microblog server: it opens the
// database, runs migrations, wires the services and starts the HTTP API,
// shutting everything down on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"microblog/internal/logging"
	"microblog/internal/server/config"
	"microblog/internal/server/httpapi"
	"microblog/internal/server/repositories/repomanager"
	"microblog/internal/server/services"
)

type App struct {
	config              *config.Config
	logger              logging.Logger
	db                  *sql.DB
	userService         *services.UserService
	micropostService    *services.MicropostService
	relationshipService *services.RelationshipService
	avatarService       *services.AvatarService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &App{
		config:              cfg,
		logger:              logger,
		db:                  db,
		userService:         services.NewUserService(db, rm, cfg),
		micropostService:    services.NewMicropostService(db, rm, cfg),
		relationshipService: services.NewRelationshipService(db, rm, cfg),
		avatarService:       services.NewAvatarService(db, rm, cfg),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewHTTPServer(app.config, app.logger,
		app.userService, app.micropostService, app.relationshipService, app.avatarService)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "Error closing db", "error", err)
	}
}
