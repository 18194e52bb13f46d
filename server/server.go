package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/uptrace/bun"

	auth "github.com/sigma-sevilla/sigma-auth"
	"github.com/sigma-sevilla/sigma-auth/activitymap"
	"github.com/sigma-sevilla/sigma-auth/config"
	"github.com/sigma-sevilla/sigma-auth/logging"
	"github.com/sigma-sevilla/sigma-auth/maintenance"
	"github.com/sigma-sevilla/sigma-auth/metrics"
)

// Server holds the assembled HTTP application and the services behind it
type Server struct {
	App          *fiber.App
	Metrics      *metrics.Metrics
	Auther       *auth.RouteAuthenticator
	Registration auth.RegistrationWorkflow
	Users        *auth.UserAdmin
	Maintenance  *maintenance.Service
}

// Option customizes the server assembly
type Option func(*options)

type options struct {
	clock   func() time.Time
	metrics *metrics.Metrics
}

// WithClock injects the clock used by tokens and services (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithMetrics reuses m instead of a fresh registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New wires the auth core, the maintenance collaborator and the ambient
// routes over db.
func New(cfg config.Config, db *bun.DB, logger *logging.Logger, opts ...Option) (*Server, error) {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}
	if logger == nil {
		logger = logging.New(nil)
	}

	sink := auth.MultiActivitySink{
		activitymap.NewLoggerSink(logger.With("component", "activity")),
		o.metrics,
	}

	tokens, err := auth.NewTokenServiceFromConfig(cfg,
		auth.WithTokenClock(o.clock),
		auth.WithTokenLogger(logger.With("component", "tokens")),
	)
	if err != nil {
		return nil, err
	}

	repo := auth.NewRepositoryManager(db, auth.WithUsersClock(o.clock))
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	credentials := auth.NewCredentialVerifier(repo.Users(), cfg,
		auth.WithCredentialLogger(logger.With("component", "credentials")),
	)

	auther, err := auth.NewHTTPAuthenticator(tokens, credentials, cfg,
		auth.WithRouteLogger(logger.With("component", "http")),
		auth.WithRouteActivitySink(sink),
		auth.WithRouteClock(o.clock),
	)
	if err != nil {
		return nil, err
	}

	registration := auth.NewRegistrationWorkflow(repo,
		auth.WithRegistrationClock(o.clock),
		auth.WithRegistrationActivitySink(sink),
		auth.WithRegistrationLogger(logger.With("component", "registration")),
		auth.WithReservedMatriculas(cfg.GetSuperAdminMatricula()),
	)

	users := auth.NewUserAdmin(repo.Users(),
		auth.WithUserAdminActivitySink(sink),
		auth.WithUserAdminLogger(logger.With("component", "users")),
	)

	guard := auth.NewGuard(auth.DefaultAccessPolicy(),
		auth.WithGuardLogger(logger.With("component", "guard")),
	)

	service := maintenance.NewService(db,
		maintenance.WithLogger(logger.With("component", "maintenance")),
		maintenance.WithClock(o.clock),
	)

	app := fiber.New(fiber.Config{
		AppName:      "sigma-auth",
		ErrorHandler: auther.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.GetAllowOrigins(), ","),
		AllowCredentials: true,
	}))
	app.Use(o.metrics.Middleware())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "sigma-auth"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/metrics", o.metrics.Handler())

	controller := auth.NewAuthController(auther, guard, registration, users,
		auth.WithControllerLogger(logger.With("component", "auth:ctrl")),
	)
	auth.RegisterAuthRoutes(app, controller)

	maintenance.RegisterRoutes(app,
		maintenance.NewController(service, logger.With("component", "maintenance:ctrl")),
		auther.ProtectedRoute(),
		guard,
	)

	return &Server{
		App:          app,
		Metrics:      o.metrics,
		Auther:       auther,
		Registration: registration,
		Users:        users,
		Maintenance:  service,
	}, nil
}
