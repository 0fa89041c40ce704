package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"

	"ticketboss/internal/cache"
	"ticketboss/internal/config"
	"ticketboss/internal/database"
	"ticketboss/internal/handlers"
	"ticketboss/internal/messaging"
	"ticketboss/internal/metrics"
	"ticketboss/internal/repository"
	"ticketboss/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Server представляет HTTP сервер API
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        *database.DB
	messaging messaging.Client
	cache     *cache.ValkeyClient
	services  *service.Services
	repos     *repository.Repositories
	registry  *prometheus.Registry
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()

	// Запускаем миграции
	if err := db.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if _, err := db.SeedEvent(ctx, database.EventSeed{
		ID:         cfg.Event.ID,
		Name:       cfg.Event.Name,
		TotalSeats: cfg.Event.TotalSeats,
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed event: %w", err)
	}
	slog.Info("Database ready", "driver", db.Driver(), "event_id", cfg.Event.ID)

	// Подключаемся к брокеру сообщений
	msgClient, err := messaging.New(cfg.Messaging)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	// Кеш сводки опционален: без Valkey читаем из базы
	var valkeyClient *cache.ValkeyClient
	var summaryCache service.SummaryCache
	if cfg.Cache.Enabled() {
		valkeyClient, err = cache.NewValkeyClient(cfg.Cache)
		if err != nil {
			slog.Warn("Valkey unavailable, summary cache disabled", "addr", cfg.Cache.Addr, "error", err)
		} else {
			summaryCache = valkeyClient
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB.DB, cfg.Database.DBName),
	)
	m := metrics.New(registry)

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, cfg.Event.ID, msgClient, summaryCache, m)

	h := handlers.NewHandlers(services, db)
	router := NewRouter(h, RouterOptions{
		Metrics:      m,
		Gatherer:     registry,
		ResetEnabled: cfg.ResetEnabled,
	})

	return &Server{
		router:    router,
		config:    cfg,
		db:        db,
		messaging: msgClient,
		cache:     valkeyClient,
		services:  services,
		repos:     repos,
		registry:  registry,
	}, nil
}

// HTTPServer возвращает http.Server с таймаутами из конфигурации
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.RequestTimeout(),
		WriteTimeout: s.config.RequestTimeout(),
	}
}

// StartPprof поднимает pprof на отдельном порту, если он включен
func (s *Server) StartPprof() {
	if !s.config.PprofEnabled {
		return
	}

	addr := ":" + s.config.PprofPort
	go func() {
		slog.Info("Starting pprof server", "addr", addr)
		if err := http.ListenAndServe(addr, http.DefaultServeMux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("pprof server stopped", "error", err)
		}
	}()
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.messaging != nil {
		if err := s.messaging.Close(); err != nil {
			slog.Error("Error closing message broker connection", "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
