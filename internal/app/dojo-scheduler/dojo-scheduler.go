// Package dojoscheduler собирает API-сервер расписания: хранилище,
// кэш, уведомления и HTTP-маршруты.
package dojoscheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/dojo-scheduler/internal/cache"
	"github.com/magabrotheeeer/dojo-scheduler/internal/config"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/jwt"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/migrations"
	"github.com/magabrotheeeer/dojo-scheduler/internal/notifier"
	admissionservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/admission"
	checkinservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/checkin"
	entitlementservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/entitlement"
	generatorservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/generator"
	rosterservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/roster"
	sessionservice "github.com/magabrotheeeer/dojo-scheduler/internal/services/session"
	"github.com/magabrotheeeer/dojo-scheduler/internal/storage/repository"
)

// App представляет API-сервер расписания занятий.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает приложение: подключает зависимости и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	// Без RabbitMQ сервис продолжает работать: уведомления о неявках
	// и продвижениях из листа ожидания просто не публикуются.
	var events rosterservice.Events
	var conn *amqp.Connection
	var ch *amqp.Channel
	conn, err = rabbitmq.Connect(cfg.RabbitConnection, 10, 3*time.Second)
	if err != nil {
		logger.Warn("rabbitmq unavailable, roster notifications disabled", sl.Err(err))
	} else {
		ch, err = conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
		}
		notif, err := notifier.New(ch, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to setup notification topology: %w", err)
		}
		events = notif
	}

	entitlements := entitlementservice.New(db, cacheRedis, logger)
	admission := admissionservice.New(db, db, entitlements, logger)
	roster := rosterservice.New(db, admission, events, logger)
	checkin := checkinservice.New(db, cfg.Kiosk.AllowWalkIn, logger)
	generator := generatorservice.New(db, cfg.Scheduling.HorizonDays, logger)
	sessions := sessionservice.New(db, logger)

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Roster:    roster,
		CheckIn:   checkin,
		Generator: generator,
		Sessions:  sessions,
	}, jwtMaker, cfg.Kiosk.StaffPINHash)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и корректно завершает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.ch != nil {
			_ = a.ch.Close()
		}
		if a.conn != nil {
			_ = a.conn.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}
