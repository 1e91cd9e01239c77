package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pbx-connector/internal/audit"
	"pbx-connector/internal/auth"
	"pbx-connector/internal/calls"
	"pbx-connector/internal/config"
	"pbx-connector/internal/directory"
	"pbx-connector/internal/httpapi"
	"pbx-connector/pkg/logger"
	"pbx-connector/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const gatewayName = "PBXManager"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	st, err := openStores(rootCtx, cfg, log)
	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	authLimit := httpapi.NewKeyedLimiter(httpapi.AuthRateLimitConfig())
	defer authLimit.Stop()
	dialLimit := httpapi.NewKeyedLimiter(httpapi.DialRateLimitConfig())
	defer dialLimit.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, cfg, deps{
		auth:      authManager,
		calls:     st.calls,
		directory: st.directory,
		audit:     audit.NewService(st.audit),
		locks:     st.locks,
		health:    st.healthCheck,
		log:       log,
		authLimit: authLimit,
		dialLimit: dialLimit,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "postgres", cfg.HasDatabase(), "redis", cfg.HasRedis())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// stores are the collaborators behind the state machine, backed by Postgres
// and redis when configured and by process memory otherwise.
type stores struct {
	calls     calls.Repository
	directory directory.Directory
	audit     audit.Repository
	locks     calls.Locker

	db  *sql.DB
	rdb *redis.Client
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	st := &stores{}

	if cfg.HasDatabase() {
		db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, err
		}
		if err := utils.ApplySchemas(ctx, db, directory.Schema, calls.Schema, audit.Schema); err != nil {
			_ = db.Close()
			return nil, err
		}
		st.db = db
		st.calls = calls.NewPostgresRepo(db)
		st.directory = directory.NewPostgresDirectory(db)
		st.audit = audit.NewPostgresRepo(db)
	} else {
		log.Warn("DB_HOST not set, using in-memory stores")
		st.calls = calls.NewMemoryRepo()
		st.directory = directory.NewMemoryDirectory()
		st.audit = audit.NewMemoryRepo()
	}

	if cfg.HasRedis() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			st.Close()
			return nil, err
		}
		st.rdb = rdb
		st.locks = calls.NewRedisLocker(rdb)
	} else {
		st.locks = calls.NewKeyedLocker()
	}
	return st, nil
}

func (s *stores) healthCheck(ctx context.Context) error {
	if s.db != nil {
		if err := utils.HealthCheck(ctx, s.db, 2*time.Second); err != nil {
			return err
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *stores) Close() {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
