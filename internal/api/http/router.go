package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/postspot/user-service/internal/api/http/handlers"
	"github.com/postspot/user-service/internal/auth"
	"github.com/postspot/user-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Follows        *handlers.FollowsHandler
	AuthMiddleware *auth.Middleware
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. /users/me is registered before
// /users/:id so that "me" is never taken for a user id.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	requireAuth := cfg.AuthMiddleware.Handle
	limit := cfg.RateLimiter.Middleware()

	users := app.Group("/users")
	users.Post("", requireAuth, cfg.Users.SignUp)
	users.Get("/me", requireAuth, cfg.Users.Me)
	users.Delete("/me", requireAuth, cfg.Users.CloseMe)

	users.Get("/:id", cfg.Users.Get)
	users.Get("/:id/followers", cfg.Follows.Followers)
	users.Get("/:id/followers/:followerId", cfg.Follows.IsFollower)
	users.Get("/:id/followees", cfg.Follows.Followees)
	users.Post("/:id/followers", requireAuth, limit, cfg.Follows.Follow)
	users.Delete("/:id/followers", requireAuth, limit, cfg.Follows.Unfollow)
}

// AppDependencies bundles everything NewApp needs.
type AppDependencies struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
	Routes         RouteConfig
}

// NewApp builds the fiber application with middlewares and routes.
func NewApp(appName string, deps AppDependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, deps.Logger, deps.Metrics, deps.RequestTimeout)
	RegisterRoutes(app, deps.Routes)
	return app
}
