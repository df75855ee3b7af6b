package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mpetrashov/user-service/internal/apperr"
	"github.com/mpetrashov/user-service/internal/config"
	"github.com/mpetrashov/user-service/internal/events"
	"github.com/mpetrashov/user-service/internal/httpserver"
	"github.com/mpetrashov/user-service/internal/logging"
	authmw "github.com/mpetrashov/user-service/internal/middleware/auth"
	loggingmw "github.com/mpetrashov/user-service/internal/middleware/logging"
	"github.com/mpetrashov/user-service/internal/models"
	"github.com/mpetrashov/user-service/internal/repo"
	"github.com/mpetrashov/user-service/internal/search"
	"github.com/mpetrashov/user-service/internal/service"
	"github.com/mpetrashov/user-service/internal/tokens"
	"github.com/mpetrashov/user-service/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.Secret, "SECRET_KEY")

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gormDB, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := gormDB.AutoMigrate(&models.User{}, &models.RevokedToken{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	codec, err := tokens.NewCodec(cfg.Secret, cfg.Algorithm, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
	}

	var userSearch *search.Users
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		userSearch = &search.Users{ES: esClient, Index: search.IndexName(cfg.ServiceName)}
	}

	gormRepo := repo.New(gormDB)

	deps := &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Repo:   gormRepo,
				Codec:  codec,
				Events: producer,
				Search: userSearch,
			},
		},
		UsersHandler: &httpserver.UsersHTTP{
			Svc: &service.UserService{
				Repo:   gormRepo,
				Search: userSearch,
			},
		},
		Guard: authmw.NewGuard(codec, gormRepo),
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka close", "error", err)
	}
}
