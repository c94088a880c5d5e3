package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvalden/numlab-api/internal/config"
	"github.com/nvalden/numlab-api/internal/events"
	"github.com/nvalden/numlab-api/internal/platform/postgres"
	"github.com/nvalden/numlab-api/internal/service"
	"github.com/nvalden/numlab-api/internal/service/auth"
	"github.com/nvalden/numlab-api/internal/solver"
	"github.com/nvalden/numlab-api/internal/store"
	"github.com/nvalden/numlab-api/internal/task"
)

// application holds the shared application dependencies so that setup
// and shutdown happen in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore store.UserStore
	runStore  store.RunStore
	taskStore task.TaskStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	registry         *solver.Registry
	userService      service.UserService
	runService       service.RunService

	// Event system and background execution
	eventEmitter events.EventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication creates an application instance with all dependencies
// initialized. The configuration, logger, and database connection must
// be established by the caller.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	// The solver registry holds every algorithm runs can request.
	app.registry = solver.NewRegistry()
	logger.Info("solver registry initialized",
		"algorithm_count", len(app.registry.Algorithms()))

	// Stores
	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost)
	app.runStore = postgres.NewPostgresRunStore(db)

	// The task factory doubles as the rebuilder that restores execution
	// logic on tasks recovered from the database after a restart.
	runTimeout := time.Duration(cfg.Solver.RunTimeoutSeconds) * time.Second
	taskFactory := task.NewSolverRunTaskFactory(app.runStore, app.registry, runTimeout, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, taskFactory)

	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	// Event system: run creation emits events, the handler turns them
	// into background tasks.
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(taskFactory, app.taskRunner, logger))
	app.eventEmitter = emitter

	// Services
	app.userService = service.NewUserService(app.userStore, db, logger)
	app.runService = service.NewRunService(app.runStore, app.registry, app.eventEmitter, logger)

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupTaskRunner initializes and starts the background task processor.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	taskRunner := task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:    app.config.Task.QueueSize,
		WorkerCount:  app.config.Task.WorkerCount,
		StuckTaskAge: time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute,
	}, app.logger)

	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return taskRunner, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
