package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cropsight/apiserver/config"
	"github.com/cropsight/apiserver/internal/classifier"
	"github.com/cropsight/apiserver/internal/db"
	"github.com/cropsight/apiserver/internal/handlers"
	"github.com/cropsight/apiserver/internal/mq"
	"github.com/cropsight/apiserver/internal/services"
	"github.com/cropsight/apiserver/internal/storage"
	"github.com/cropsight/apiserver/internal/store"
	"github.com/cropsight/apiserver/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server, its router, and the process-lifetime
// resources: database, classifier, and optional broker.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	clf        classifier.Classifier
	broker     *mq.MQ
}

// New constructs a Server: opens the database, seeds the admin account,
// loads the classifier (falling back to the degraded stub when the model
// artifact is unavailable), and wires the routes.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	userRepo := store.NewUserRepository(dbConn)
	predictionRepo := store.NewPredictionRepository(dbConn)

	userService := services.NewUserService(userRepo)
	predictionService := services.NewPredictionService(predictionRepo)

	if err := userService.EnsureAdmin(ctx, cfg.Auth.BootstrapPassword); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("seed admin account: %w", err)
	}

	clf := loadClassifier(cfg.Model, logger)

	renderer, err := web.NewRenderer()
	if err != nil {
		_ = dbConn.Close()
		clf.Close()
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	authHandler := handlers.NewAuthHandler(userService, jwtSecret, cfg.Auth.BootstrapPassword)
	predictHandler := handlers.NewPredictHandler(clf, predictionService, cfg.UploadDir, logger)
	adminHandler := handlers.NewAdminHandler(userService)
	pageHandler := handlers.NewPageHandler(renderer, userService, predictionService, logger)

	archive, err := buildArchive(ctx, cfg.Storage)
	if err != nil {
		logger.Warn("upload archive disabled", "backend", cfg.Storage.Backend, "error", err)
	} else if archive != nil {
		if err := archive.EnsureBucket(ctx); err != nil {
			logger.Warn("upload archive disabled", "backend", cfg.Storage.Backend, "error", err)
		} else {
			predictHandler.WithArchive(archive)
		}
	}

	broker, err := buildBroker(ctx, cfg.Broker)
	if err != nil {
		logger.Warn("prediction events disabled", "backend", cfg.Broker.Backend, "error", err)
		broker = nil
	} else if broker != nil {
		predictHandler.WithBroker(broker, cfg.Broker.Channel)
	}

	requireUser := handlers.RequireUser(jwtSecret)
	requireAdmin := handlers.RequireAdmin(jwtSecret)
	optionalUser := handlers.OptionalUser(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/healthz", handlers.Healthz)

	router.Get("/", pageHandler.Login)
	router.Get("/signup", pageHandler.Signup)
	router.Post("/signup", authHandler.Signup)
	router.Post("/login", authHandler.Login)
	router.With(optionalUser).Get("/dashboard", pageHandler.Dashboard)

	router.With(optionalUser).Post("/predict", predictHandler.Predict)
	router.With(optionalUser).Get("/history", predictHandler.History)
	router.With(requireUser).Post("/clear_history", predictHandler.ClearHistory)

	router.Get("/admin_login", pageHandler.AdminLogin)
	router.Post("/admin_login", authHandler.AdminLogin)
	router.With(optionalUser).Get("/admin_dashboard", pageHandler.AdminDashboard)
	router.With(requireAdmin).Post("/admin_create_user", adminHandler.CreateUser)
	router.With(requireAdmin).Delete("/admin_delete_user/{userID}", adminHandler.DeleteUser)
	router.Post("/logout_admin", authHandler.LogoutAdmin)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		clf:        clf,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown releases process-lifetime resources and closes the server.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.clf != nil {
		s.clf.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// loadClassifier loads the ONNX model, degrading to the stub classifier
// when the artifact cannot be loaded. The degraded mode answers every
// request with a fixed placeholder result flagged as degraded.
func loadClassifier(cfg config.ModelConfig, logger *slog.Logger) classifier.Classifier {
	clf, err := classifier.NewONNX(cfg.Path, cfg.MetadataPath)
	if err != nil {
		logger.Warn("model unavailable, running in degraded mode", "path", cfg.Path, "error", err)
		return classifier.NewStub(0)
	}
	logger.Info("model loaded", "path", cfg.Path, "input_size", clf.InputSize())
	return clf
}

func buildArchive(ctx context.Context, cfg config.StorageConfig) (*storage.Archive, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewArchive(client), nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewArchive(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func buildBroker(ctx context.Context, cfg config.BrokerConfig) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.Rabbit)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown broker backend %q", cfg.Backend)
	}
}
