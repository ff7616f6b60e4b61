package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fernandoldf/representa/internal/auth"
	"github.com/fernandoldf/representa/internal/config"
	internalhttp "github.com/fernandoldf/representa/internal/http"
	"github.com/fernandoldf/representa/internal/mail"
	"github.com/fernandoldf/representa/internal/metrics"
	"github.com/fernandoldf/representa/internal/repo"
	"github.com/fernandoldf/representa/internal/representante"
	"github.com/fernandoldf/representa/internal/service"
	"github.com/fernandoldf/representa/internal/sheets"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("LOG_LEVEL inválido, usando info")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	store := repo.NewJSONStore(cfg.DBPath,
		repo.WithLockTimeout(cfg.StoreLockTimeout),
		repo.WithObserver(collector),
	)

	ctx := context.Background()
	if _, err := store.Load(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	var mailer mail.Dispatcher
	if cfg.Email.Enabled() {
		mailer, err = mail.NewSMTPDispatcher(mail.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			User:     cfg.Email.User,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		if err != nil {
			return fmt.Errorf("email: %w", err)
		}
	} else {
		log.Warn().Msg("EMAIL_HOST ausente: envio de comunicados desativado")
	}

	var roster sheets.Provider
	if cfg.Sheety.Enabled() {
		roster, err = sheets.NewClient(sheets.Config{
			BaseURL:     cfg.Sheety.BaseURL,
			ProjectID:   cfg.Sheety.ProjectID,
			AccessToken: cfg.Sheety.AccessToken,
		})
		if err != nil {
			return fmt.Errorf("sheety: %w", err)
		}
	} else {
		log.Warn().Msg("SHEETY_PROJECT_ID ausente: sincronização de alunos desativada")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
	}

	reps := representante.NewService(store, mailer, roster, representante.WithRecorder(collector))
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	authService := service.NewAuthService(reps, redisClient, jwtManager)

	handler, err := internalhttp.NewRouter(internalhttp.Deps{
		Config:         cfg,
		Store:          store,
		Redis:          redisClient,
		Auth:           authService,
		Representantes: reps,
		Metrics:        collector,
		Gatherer:       registry,
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("db", store.Path()).Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
