// Package server wires the HTTP surface of the app: the request
// pipeline, the auth and catalog routes, and the process supervisor.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/middleware/bearer"
)

// Config carries everything the server needs to assemble routes.
type Config struct {
	// Production toggles stack redaction in error payloads and static
	// SPA serving.
	Production bool
	// StaticDir is the SPA build output served in production.
	StaticDir string
	// ContextKey is where validated claims are stored on the request.
	ContextKey string
	// AuthScheme is the Authorization header scheme.
	AuthScheme string
	// AllowOrigins restricts CORS to the SPA origin when set; empty
	// allows any origin.
	AllowOrigins string

	Repo   bandmate.RepositoryManager
	Auth   bandmate.Authenticator
	Logger bandmate.Logger
}

// Server is the fiber app plus its dependencies.
type Server struct {
	app    *fiber.App
	config Config
	logger bandmate.Logger
}

// New assembles the request pipeline. Middleware order matters: CORS
// first so even failed requests carry the headers, then body limits and
// logging, then the routers. The error handler is centralized in the
// fiber config so every route and middleware funnels through it.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = bandmate.DefaultLogger()
	}

	app := fiber.New(fiber.Config{
		AppName:      "bandmate",
		ErrorHandler: NewErrorHandler(log, config.Production),
	})

	if config.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{AllowOrigins: config.AllowOrigins}))
	} else {
		app.Use(cors.New())
	}
	app.Use(logger.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	srv := &Server{
		app:    app,
		config: config,
		logger: log,
	}

	srv.mountRoutes()

	return srv
}

func (s *Server) mountRoutes() {
	contextKey := s.config.ContextKey
	if contextKey == "" {
		contextKey = "user"
	}

	protected := bearer.New(bearer.Config{
		ContextKey:     contextKey,
		AuthScheme:     s.config.AuthScheme,
		TokenValidator: NewTokenValidator(s.config.Auth.TokenService()),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// funnel middleware failures through the central handler
			return unauthorized(err)
		},
	})

	api := s.app.Group("/api")

	auth := NewAuthController(s.config.Repo, s.config.Auth, s.logger)
	auth.RegisterRoutes(api.Group("/auth"), protected, contextKey)

	catalog := NewCatalogController(s.config.Repo, s.logger)
	catalog.RegisterRoutes(api, protected, contextKey)

	if s.config.Production && s.config.StaticDir != "" {
		s.app.Static("/", s.config.StaticDir)
		// SPA fallback, client side routing handles the rest
		s.app.Get("/*", func(c *fiber.Ctx) error {
			return c.SendFile(s.config.StaticDir + "/index.html")
		})
	}
}

// App exposes the underlying fiber app, used by tests to issue requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve blocks listening on addr until Shutdown is called.
func (s *Server) Serve(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return s.app.Shutdown()
	}
	return s.app.ShutdownWithTimeout(time.Until(deadline))
}
