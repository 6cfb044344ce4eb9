package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/konekta/identity/internal/api/handler"
	"github.com/konekta/identity/internal/api/middleware"
	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/service"
	mongodb "github.com/konekta/identity/internal/infrastructure/db/mongo"
	redisdb "github.com/konekta/identity/internal/infrastructure/db/redis"
	"github.com/konekta/identity/internal/infrastructure/notify"
)

// Options carries everything the router needs beyond its datastores.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	Policy    domain.CredentialPolicy
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("konekta"))

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	tempCreds := redisdb.NewTempCredStore(rdb)
	notifier := notify.NewLogNotifier(opts.Logger)
	identity := service.NewIdentityService(userRepo, tempCreds, notifier, opts.Policy, opts.JWTSecret, opts.TokenTTL, opts.Logger)
	authHandler := handler.NewAuthHandler(identity)
	authRequired := middleware.Auth(opts.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/signup", authHandler.Signup)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/set-password", authHandler.SetPassword, authRequired)
	e.GET("/auth/users/:email", authHandler.GetUser, authRequired)
	e.PUT("/auth/users/:email", authHandler.UpdateUser, authRequired)

	// --- Observability (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
