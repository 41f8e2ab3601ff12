//	@title			Journeys Feed API
//	@version		1.0
//	@description	Photo-post feed: upload, browse, like and delete posts.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/journeys/service/internal/config"
	"github.com/journeys/service/internal/db"
	"github.com/journeys/service/internal/events"
	"github.com/journeys/service/internal/logger"
	appMiddleware "github.com/journeys/service/internal/middleware"
	"github.com/journeys/service/internal/post"
	"github.com/journeys/service/internal/response"
	"github.com/journeys/service/internal/storage"
	"github.com/journeys/service/internal/user"

	_ "github.com/journeys/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		stdlog.Fatalf("logger init failed: %v", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	objects, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		Region:    cfg.StorageRegion,
		UseSSL:    cfg.StorageUseSSL,
	}, log)
	if err != nil {
		log.Fatal("object storage init failed", zap.Error(err))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NatsURL != "" {
		nats, err := events.NewNatsPublisher(cfg.NatsURL, log)
		if err != nil {
			log.Warn("event publishing disabled", zap.Error(err))
		} else {
			defer nats.Close()
			publisher = nats
		}
	}

	// Wire dependencies: repository → service → handler
	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc, log)

	postRepo := post.NewRepository(pool)
	postSvc := post.NewService(postRepo, objects, userSvc, publisher, post.Options{
		PresignTTL:     cfg.PresignTTL,
		StorageTimeout: cfg.StorageTimeout,
		DBTimeout:      cfg.DBTimeout,
	}, log)
	postHandler := post.NewHandler(postSvc, cfg.MaxUploadBytes, log)

	uploadLimiter := appMiddleware.NewRateLimiter(cfg.UploadRatePerMin, cfg.UploadRateBurst)
	stopCleanup := make(chan struct{})
	go uploadLimiter.RunCleanup(time.Minute, stopCleanup)

	requireAuth := appMiddleware.RequireAuth(cfg.JWTSecret)
	optionalAuth := appMiddleware.OptionalAuth(cfg.JWTSecret)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(pool, objects, log))
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/posts", postHandler.Routes(requireAuth, optionalAuth, uploadLimiter.Handler))

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", userHandler.GetMe)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down gracefully")
	close(stopCleanup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		return
	}
	log.Info("server stopped")
}

// healthHandler reports 503 when either backing store is unreachable.
func healthHandler(pool *pgxpool.Pool, objects *storage.MinioStorage, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "storage": "ok"}
		healthy := true
		if err := pool.Ping(ctx); err != nil {
			log.Warn("health: database unreachable", zap.Error(err))
			checks["database"] = "unavailable"
			healthy = false
		}
		if err := objects.Ping(ctx); err != nil {
			log.Warn("health: storage unreachable", zap.Error(err))
			checks["storage"] = "unavailable"
			healthy = false
		}

		if !healthy {
			response.JSON(w, http.StatusServiceUnavailable, response.Envelope{Success: false, Data: checks, Error: "degraded"})
			return
		}
		response.OK(w, checks)
	}
}
