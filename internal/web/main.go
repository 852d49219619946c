// Package web assembles the HTTP service: the fiber app, middleware chain
// and handler registration.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/auth"
	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/directory"
	admindirectory "github.com/glasspane/glasspane/internal/web/handler/admin/directory"
	"github.com/glasspane/glasspane/internal/web/handler/admin/mapping"
	adminusers "github.com/glasspane/glasspane/internal/web/handler/admin/users"
	"github.com/glasspane/glasspane/internal/web/handler/admin/webappconfig"
	"github.com/glasspane/glasspane/internal/web/handler/authapi"
	"github.com/glasspane/glasspane/internal/web/handler/sites"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
	"github.com/glasspane/glasspane/internal/web/middleware/ratelimit"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	directory    *directory.Service
	login        *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: fail the liveness check first so
	// the load balancer stops routing here before the listener goes away.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: returning 503 for %d seconds to drain the load balancer",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		if err := s.App.Shutdown(); err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server stopped")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "Glasspane",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	// resolve the session cookie into the current user for every request
	app.Use(authmw.Middleware)

	directoryService := directory.NewService(db, cfg.Directory)
	loginService := auth.NewService(db, directoryService, cfg.Auth)
	limiter := ratelimit.New(cfg.Redis)

	service := &Service{
		cfg:       cfg,
		App:       app,
		db:        db,
		directory: directoryService,
		login:     loginService,
	}

	service.alive.Store(true)

	// init handlers (they register their own routes with access checks)
	if err := authapi.Handler.Init(app, cfg, db, loginService, limiter.Middleware); err != nil {
		log.Fatal().Err(err).Msg("failed to init auth handler")
	}

	if err := sites.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init sites handler")
	}

	if err := admindirectory.Handler.Init(app, cfg, db, directoryService); err != nil {
		log.Fatal().Err(err).Msg("failed to init admin directory handler")
	}

	if err := mapping.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init admin mapping handler")
	}

	if err := adminusers.Handler.Init(app, cfg, db, loginService); err != nil {
		log.Fatal().Err(err).Msg("failed to init admin users handler")
	}

	if err := webappconfig.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init admin webapp config handler")
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/checkalive", func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	return service
}
