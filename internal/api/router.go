package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/time/rate"

	"github.com/silianos/voyage-api/docs"
	"github.com/silianos/voyage-api/internal/api/handler"
	"github.com/silianos/voyage-api/internal/api/middleware"
	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/core/ports"
	"github.com/silianos/voyage-api/internal/core/service"
	mongodb "github.com/silianos/voyage-api/internal/infrastructure/db/mongo"
	redisdb "github.com/silianos/voyage-api/internal/infrastructure/db/redis"
	"github.com/silianos/voyage-api/internal/infrastructure/security"
	"github.com/silianos/voyage-api/internal/pkg/config"
)

// Deps are the connections and long-lived components the router wires together.
type Deps struct {
	DB    *mongo.Database
	Redis *redis.Client
	Audit ports.AuditSink
	Log   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, deps Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log, cfg.IsDevelopment())

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit("1M"))

	// --- Dependencies ---
	issuer, err := security.NewJWTIssuer(cfg.Auth.JWTSecret, security.WithMaxSessionAge(cfg.Auth.MaxSessionAge))
	if err != nil {
		return nil, err
	}
	var throttle ports.LoginThrottle
	if deps.Redis != nil {
		throttle = redisdb.NewLoginThrottle(deps.Redis, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginFailureWindow, deps.Log)
	}
	authService := service.NewAuthService(service.AuthDeps{
		Customers:   mongodb.NewCustomerRepository(deps.DB),
		Admins:      mongodb.NewAdminRepository(deps.DB),
		Hasher:      security.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:      issuer,
		Throttle:    throttle,
		Audit:       deps.Audit,
		CustomerTTL: cfg.Auth.CustomerTokenTTL,
		AdminTTL:    cfg.Auth.AdminTokenTTL,
		Log:         deps.Log,
	})
	authHandler := handler.NewAuthHandler(authService)
	adminOnly := []echo.MiddlewareFunc{middleware.Auth(issuer), middleware.RequireKind(domain.KindAdministrator)}

	api := e.Group(cfg.BasePath)

	// --- Auth routes ---
	auth := api.Group("/auth", echomiddleware.RateLimiter(
		echomiddleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Auth.RateLimit)),
	))
	auth.POST("/user/login", authHandler.CustomerLogin)
	auth.POST("/user/register", authHandler.CustomerRegister)
	auth.PUT("/user/profile", authHandler.UpdateProfile, middleware.Auth(issuer), middleware.RequireKind(domain.KindCustomer))
	auth.POST("/admin/login", authHandler.AdminLogin)
	auth.POST("/admin/register", authHandler.AdminRegister)
	auth.GET("/verify", authHandler.Verify)

	// --- Content routes ---
	store := mongodb.NewDocumentStore(deps.DB)
	resource := func(schema *domain.ResourceSchema) *handler.ResourceHandler {
		return handler.NewResourceHandler(service.NewResourceService(schema, store.Collection(schema.Collection)))
	}

	bookings := resource(&domain.Bookings)
	g := api.Group("/bookings")
	g.GET("", bookings.List, adminOnly...)
	g.GET("/:id", bookings.Get, adminOnly...)
	g.POST("", bookings.Create)
	g.PATCH("/:id/status", bookings.SetField("status", "Booking status updated successfully"), adminOnly...)
	g.PATCH("/:id/payment", bookings.SetField("payment_status", "Payment status updated successfully"), adminOnly...)
	g.DELETE("/:id", bookings.Delete, adminOnly...)

	testimonials := resource(&domain.Testimonials)
	g = api.Group("/testimonials")
	g.GET("", testimonials.List)
	g.GET("/:id", testimonials.Get)
	g.POST("", testimonials.Create)
	g.PUT("/:id", testimonials.Update, adminOnly...)
	g.PATCH("/:id/verify", testimonials.SetFixed("verified", true, "Testimonial verified successfully"), adminOnly...)
	g.DELETE("/:id", testimonials.Delete, adminOnly...)

	blog := resource(&domain.BlogPosts)
	g = api.Group("/blog")
	g.GET("", blog.List)
	g.GET("/category/:category", blog.ListByCategory)
	g.GET("/:id", blog.Get)
	registerAdminWrites(g, blog, adminOnly)

	messages := resource(&domain.Messages)
	g = api.Group("/messages")
	g.GET("", messages.List, adminOnly...)
	g.GET("/:id", messages.Get, adminOnly...)
	g.POST("", messages.Create)
	g.PATCH("/:id/status", messages.SetField("status", "Message status updated successfully"), adminOnly...)
	g.DELETE("/:id", messages.Delete, adminOnly...)

	gallery := resource(&domain.GalleryImages)
	g = api.Group("/gallery")
	g.GET("", gallery.List)
	g.GET("/categories", gallery.Categories)
	g.GET("/category/:category", gallery.ListByCategory)
	g.GET("/:id", gallery.Get)
	registerAdminWrites(g, gallery, adminOnly)

	for path, schema := range map[string]*domain.ResourceSchema{
		"/services": &domain.Services,
		"/pricing":  &domain.PricingPackages,
	} {
		h := resource(schema)
		g = api.Group(path)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		registerAdminWrites(g, h, adminOnly)
	}

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(dependencyChecks(deps))

	e.GET("/", banner)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	docs.SwaggerInfo.BasePath = cfg.BasePath
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

func registerAdminWrites(g *echo.Group, h *handler.ResourceHandler, adminOnly []echo.MiddlewareFunc) {
	g.POST("", h.Create, adminOnly...)
	g.PUT("/:id", h.Update, adminOnly...)
	g.DELETE("/:id", h.Delete, adminOnly...)
}

func dependencyChecks(deps Deps) map[string]handler.DependencyCheck {
	checks := make(map[string]handler.DependencyCheck)
	if deps.DB != nil {
		checks["mongodb"] = func(ctx context.Context) error {
			return deps.DB.Client().Ping(ctx, readpref.Primary())
		}
	}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

func banner(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Silianos Voyage API"})
}

// requestLogger feeds Echo's access log into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// Serve runs e on addr until ctx is cancelled, then drains in-flight requests.
func Serve(ctx context.Context, e *echo.Echo, addr string, drain time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
