//	@title			MediaVault API
//	@version		1.0
//	@description	Per-user media storage: bytes in an S3-compatible store, metadata in a queryable catalog, access via presigned URLs.
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
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/mediavault/service/internal/auth"
	"github.com/mediavault/service/internal/config"
	"github.com/mediavault/service/internal/db"
	"github.com/mediavault/service/internal/media"
	appMiddleware "github.com/mediavault/service/internal/middleware"
	"github.com/mediavault/service/internal/storage"
	"github.com/mediavault/service/internal/user"

	_ "github.com/mediavault/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureBucket(bucketCtx); err != nil {
		cancelBucket()
		log.Fatalf("object storage bucket init failed: %v", err)
	}
	cancelBucket()

	// Wire dependencies: repository → service → handler
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL)

	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(userSvc, tokens)
	authHandler := auth.NewHandler(authSvc, cfg)

	mediaRepo := media.NewRepository(pool)
	mediaSvc := media.NewService(mediaRepo, store, cfg.BrowseURLTTL, cfg.DownloadURLTTL)
	mediaHandler := media.NewHandler(mediaSvc, store, cfg.MaxUploadBytes)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Protected user endpoints
		r.Route("/users", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(tokens))
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateProfile)
			r.Put("/me/password", userHandler.ChangePassword)
		})

		// Protected media endpoints
		r.Route("/media", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(tokens))
			r.Post("/", mediaHandler.Upload)
			r.Get("/", mediaHandler.List)
			r.Get("/{id}", mediaHandler.Get)
			r.Get("/{id}/download", mediaHandler.Download)
			r.Patch("/{id}", mediaHandler.Update)
			r.Delete("/{id}", mediaHandler.Delete)
		})

		// Admin audit endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(tokens))
			r.Use(appMiddleware.RequireRole(user.RoleAdmin))
			r.Get("/users", userHandler.ListUsers)
			r.Get("/objects", mediaHandler.ListObjects)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
