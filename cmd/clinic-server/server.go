package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicrecords/clinic/internal/config"
	"github.com/clinicrecords/clinic/internal/domain/doctor"
	"github.com/clinicrecords/clinic/internal/domain/patient"
	"github.com/clinicrecords/clinic/internal/domain/record"
	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/auth"
	"github.com/clinicrecords/clinic/internal/platform/db"
	"github.com/clinicrecords/clinic/internal/platform/filestore"
	"github.com/clinicrecords/clinic/internal/platform/middleware"
)

const downloadRoute = "/api/records/download/:filename"

// app holds everything the HTTP layer needs. pool is nil in tests.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
	tokens *auth.TokenService

	doctors  *doctor.Service
	patients *patient.Service
	records  *record.Service
}

func newApp(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) (*app, error) {
	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey), cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	store, err := filestore.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	logger.Info().Str("dir", store.Dir()).Msg("storing attachments on disk")

	tx := db.NewTransactor(pool)
	doctorRepo := doctor.NewRepo(pool)
	patientRepo := patient.NewRepo(pool)
	recordRepo := record.NewRepo(pool)

	return &app{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		tokens:   tokens,
		doctors:  doctor.NewService(doctorRepo, tx, tokens),
		patients: patient.NewService(patientRepo, recordRepo, store, tx, logger),
		records:  record.NewService(recordRepo, store, tx, logger),
	}, nil
}

// principalResolver loads the doctor named by a verified token.
type principalResolver struct {
	doctors *doctor.Service
}

func (r principalResolver) ResolvePrincipal(ctx context.Context, doctorID int64) (*auth.Principal, error) {
	d, err := r.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{
		ID:             d.ID,
		Name:           d.Name,
		Email:          d.Email,
		Specialization: d.Specialization,
	}, nil
}

// ipExtractor keys clients by socket peer unless TRUSTED_PROXIES names the
// proxies whose X-Forwarded-For may be believed.
func ipExtractor(cfg *config.Config, logger zerolog.Logger) echo.IPExtractor {
	ranges, err := cfg.TrustedProxyRanges()
	if err != nil {
		logger.Error().Err(err).Msg("ignoring TRUSTED_PROXIES")
		return echo.ExtractIPDirect()
	}
	if len(ranges) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range ranges {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func newEcho(a *app) *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(a.logger, cfg.IsProduction())
	e.IPExtractor = ipExtractor(cfg, a.logger)

	e.Pre(echomw.RemoveTrailingSlash())

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	// Preflight requests never reach group middleware, so CORS sits here.
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, auth.TokenHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, echo.HeaderContentDisposition},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool, !cfg.IsProduction()))
	}

	api := e.Group("/api")

	requireAuth := auth.Middleware(auth.MiddlewareConfig{
		Verifier: a.tokens,
		Resolver: principalResolver{doctors: a.doctors},
	})
	recordsAuth := requireAuth
	if !cfg.DownloadRequireAuth {
		recordsAuth = auth.Middleware(auth.MiddlewareConfig{
			Verifier: a.tokens,
			Resolver: principalResolver{doctors: a.doctors},
			Skipper:  auth.NewSkipper(downloadRoute),
		})
	}

	limit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.AuthRateLimitRPS,
		BurstSize:         cfg.AuthRateLimitBurst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	})

	doctor.NewHandler(a.doctors).RegisterRoutes(api.Group("/auth"), requireAuth, limit)
	patient.NewHandler(a.patients).RegisterRoutes(api.Group("/patients", requireAuth))
	record.NewHandler(a.records).RegisterRoutes(api.Group("/records", recordsAuth), middleware.BodyLimit(cfg.UploadLimit()))

	return e
}
