package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/roster"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

const snapshotRetries = 3

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly class timetable generation and manual relocation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	rosterData, err := roster.NewLoader(validate).Load(cfg.Scheduler.RosterPath)
	if err != nil {
		logr.Fatal("failed to load roster", zap.String("path", cfg.Scheduler.RosterPath), zap.Error(err))
	}
	logr.Info("roster loaded",
		zap.Int("subjects", len(rosterData.Subjects)),
		zap.Int("teachers", len(rosterData.Teachers)),
		zap.Int("groups", len(rosterData.Groups)),
		zap.Int("slots", rosterData.Calendar.Size()),
	)

	engine := scheduler.NewEngine(scheduler.WithRandomSource(scheduler.NewRandomSource(cfg.Scheduler.Seed)))
	timetable := scheduler.NewTimetable(rosterData, engine)
	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var snapshots *service.SnapshotWriter
	if cfg.Snapshots.Enabled {
		var client *redis.Client
		client, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		}
		store := repository.NewSnapshotRepository(client, cfg.Snapshots.Key, cfg.Snapshots.TTL, logr)
		defer store.Close() //nolint:errcheck
		checks["redis"] = store.Ping

		snapshots = service.NewSnapshotWriter(store, metrics, logr, snapshotRetries, time.Second)
		snapshots.Start(context.Background())
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := snapshots.Close(flushCtx); err != nil {
				logr.Warn("pending snapshot writes dropped", zap.Error(err))
			}
			persisted, enqueued := snapshots.Persisted()
			logr.Info("snapshot writer stopped", zap.Uint64("persisted_version", persisted), zap.Uint64("enqueued_version", enqueued))
		}()
	}

	var (
		db           *sqlx.DB
		publications *repository.TimetableRepository
	)
	if cfg.Publishing.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.String("host", cfg.Database.Host), zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		publications = repository.NewTimetableRepository(db)
		checks["postgres"] = db.PingContext
	}

	timetableSvc := newTimetableService(timetable, snapshots, publications, db, metrics, validate, logr, cfg)

	if cfg.Snapshots.Enabled && cfg.Snapshots.RestoreOnBoot {
		restored, restoreErr := timetableSvc.Restore(ctx)
		if restoreErr != nil {
			logr.Warn("starting with an empty timetable", zap.Error(restoreErr))
		} else {
			logr.Info("snapshot restore finished", zap.Int("sessions", restored))
		}
	}

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	r := newRouter(cfg, routerDeps{
		logger:    logr,
		metrics:   metrics,
		auth:      authSvc,
		timetable: handler.NewTimetableHandler(timetableSvc),
		health:    handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "auth", cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}

// newTimetableService keeps typed nil pointers out of the service's interfaces.
func newTimetableService(
	timetable *scheduler.Timetable,
	snapshots *service.SnapshotWriter,
	publications *repository.TimetableRepository,
	db *sqlx.DB,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
	cfg *config.Config,
) *service.TimetableService {
	svcCfg := service.TimetableServiceConfig{PublishingEnabled: cfg.Publishing.Enabled}
	switch {
	case snapshots != nil && publications != nil:
		return service.NewTimetableService(timetable, snapshots, publications, db, metrics, validate, logr, svcCfg)
	case snapshots != nil:
		return service.NewTimetableService(timetable, snapshots, nil, nil, metrics, validate, logr, svcCfg)
	case publications != nil:
		return service.NewTimetableService(timetable, nil, publications, db, metrics, validate, logr, svcCfg)
	default:
		return service.NewTimetableService(timetable, nil, nil, nil, metrics, validate, logr, svcCfg)
	}
}
