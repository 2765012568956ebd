// Package main runs the classroom assistant HTTP server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ar-classroom/backend/config"
	"github.com/ar-classroom/backend/internal/lectures"
	"github.com/ar-classroom/backend/internal/middleware"
	"github.com/ar-classroom/backend/pkg/database"
	"github.com/ar-classroom/backend/pkg/docstore"
	"github.com/ar-classroom/backend/pkg/gateway"
	"github.com/ar-classroom/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	vertex, err := gateway.NewVertex(ctx, gateway.VertexConfig{
		ProjectID: cfg.Gateway.ProjectID,
		Region:    cfg.Gateway.Region,
		Model:     cfg.Gateway.Model,
	}, logger)
	if err != nil {
		logger.Fatal("vertex ai", zap.Error(err))
	}

	// Lectures
	lectureSvc := lectures.NewService(store, vertex, lectures.Config{
		LecturesCollection: cfg.Store.LecturesCollection,
		UsersCollection:    cfg.Store.UsersCollection,
		Policy:             cfg.Lecture.ActiveSessionPolicy,
		GatewayTimeout:     time.Duration(cfg.Gateway.TimeoutSec) * time.Second,
		QuestionCount:      cfg.Gateway.QuestionCount,
	}, logger)
	lectureHandler := lectures.NewHandler(lectureSvc, cfg.Lecture.MaxUploadBytes(), logger)

	router := gin.New()
	router.MaxMultipartMemory = cfg.Lecture.MaxUploadBytes()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{"message": "Welcome to the AR Classroom Assistant API"})
	})
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Lecture lifecycle, served at the root and under /api
	lectureHandler.Register(router)
	lectureHandler.Register(router.Group("/api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("policy", string(cfg.Lecture.ActiveSessionPolicy)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := vertex.Close(); err != nil {
		logger.Warn("vertex ai close", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("store close", zap.Error(err))
	}
	logger.Info("server stopped")
}

// openStore connects the document store selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := database.NewMongoClient(ctx, cfg.MongoURL, logger)
		if err != nil {
			return nil, err
		}
		return docstore.NewMongo(client, cfg.DatabaseName), nil
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return docstore.NewPostgres(pool), nil
	case config.DriverFirestore:
		client, err := database.NewFirestoreClient(ctx, cfg.FirestoreProjectID, logger)
		if err != nil {
			return nil, err
		}
		return docstore.NewFirestore(client), nil
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return docstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
