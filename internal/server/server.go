package server

import (
	"database/sql"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/craftdeck/craftdeck/internal/api"
	"github.com/craftdeck/craftdeck/internal/auth"
	"github.com/craftdeck/craftdeck/internal/automation"
	"github.com/craftdeck/craftdeck/internal/config"
	"github.com/craftdeck/craftdeck/internal/console"
	"github.com/craftdeck/craftdeck/internal/docker"
	"github.com/craftdeck/craftdeck/internal/scheduler"

	// Register game adapters
	_ "github.com/craftdeck/craftdeck/internal/game/minecraft"
	_ "github.com/craftdeck/craftdeck/internal/game/vintagestory"
)

type Server struct {
	cfg        *config.Config
	db         *sql.DB
	router     chi.Router
	dispatcher *automation.Dispatcher
	watcher    *automation.Watcher
	scheduler  *scheduler.Scheduler
}

func New(cfg *config.Config, db *sql.DB) (*Server, error) {
	authSvc := auth.NewService(db)
	if err := authSvc.EnsureDefaultAdmin(cfg.DefaultUser, cfg.DefaultPass); err != nil {
		return nil, fmt.Errorf("ensure default admin: %w", err)
	}

	dockerClient, err := docker.NewClient()
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	// The automation engine: one console transport and one dispatcher shared
	// by every trigger path (HTTP, scheduler, presence watcher).
	transport := console.NewDockerTransport(db, dockerClient)
	store := automation.NewSQLStore(db)
	runner := automation.NewRunner(automation.NewInterpreter(transport))
	dispatcher := automation.NewDispatcher(store, runner)
	dispatcher.StartWorker()

	watcher := automation.NewWatcher(store, transport, dispatcher, cfg.PollInterval)
	watcher.Start()

	sched := scheduler.New(db, dockerClient, dispatcher)
	sched.Start()

	authHandler := api.NewAuthHandler(authSvc)
	serverHandler := api.NewServerHandler(db, dockerClient, cfg.DataDir, dispatcher)
	consoleHandler := api.NewConsoleHandler(db, dockerClient)
	automationHandler := api.NewAutomationHandler(store, dispatcher, watcher)
	scheduleHandler := api.NewScheduleHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(api.AuthMiddleware(authSvc))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Get("/games", serverHandler.Games)

			r.Route("/servers", func(r chi.Router) {
				r.Get("/", serverHandler.List)
				r.Post("/", serverHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", serverHandler.Get)
					r.Put("/", serverHandler.Update)
					r.Delete("/", serverHandler.Delete)
					r.Post("/start", serverHandler.Start)
					r.Post("/stop", serverHandler.Stop)
					r.Post("/restart", serverHandler.Restart)

					// Automation
					r.Get("/automation", automationHandler.Get)
					r.With(api.RequireAdmin).Put("/automation", automationHandler.Put)
					r.Post("/automation/trigger/{trigger}", automationHandler.Trigger)
					r.Get("/automation/logs", automationHandler.Logs)
					r.Get("/automation/presence", automationHandler.Presence)

					// Schedules
					r.Get("/schedules", scheduleHandler.List)
					r.Post("/schedules", scheduleHandler.Create)
					r.Put("/schedules/{scheduleId}", scheduleHandler.Update)
					r.Delete("/schedules/{scheduleId}", scheduleHandler.Delete)
				})
			})

			r.With(api.RequireAdmin).Post("/automation/cycle", automationHandler.RunCycle)
		})

		// WebSocket route; browsers cannot set headers on websocket
		// connects, so it sits outside the bearer-token group.
		r.Get("/servers/{id}/console", consoleHandler.Handle)
	})

	return &Server{
		cfg:        cfg,
		db:         db,
		router:     r,
		dispatcher: dispatcher,
		watcher:    watcher,
		scheduler:  sched,
	}, nil
}

func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.dispatcher != nil {
		s.dispatcher.StopWorker()
	}
}
