package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/production-schedule/internal/adapter/catalog"
	"github.com/rl1809/production-schedule/internal/adapter/handler"
	"github.com/rl1809/production-schedule/internal/adapter/lock"
	"github.com/rl1809/production-schedule/internal/adapter/storage"
	"github.com/rl1809/production-schedule/internal/config"
	"github.com/rl1809/production-schedule/internal/core/service"
	"github.com/rl1809/production-schedule/internal/port"
	"github.com/rl1809/production-schedule/internal/scheduler"
	"github.com/rl1809/production-schedule/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		panic(err)
	}

	log := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL backs the store, the catalog or both
	var db *sql.DB
	if cfg.Store.Driver == config.StoreMySQL || cfg.Catalog.Driver == config.CatalogMySQL {
		db, err = openMySQL(ctx, cfg.MySQL)
		if err != nil {
			log.Fatal("failed to connect mysql", zap.Error(err))
		}
		defer db.Close()
		log.Info("connected to mysql")
	}

	// Redis backs the lock and request idempotency
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("connected to redis")
	}

	var store port.ScheduleRepository
	switch cfg.Store.Driver {
	case config.StoreMySQL:
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			log.Fatal("failed to migrate mysql schema", zap.Error(err))
		}
		store = mysqlAdapter
	case config.StoreMongo:
		mongoAdapter, err := storage.NewMongoAdapter(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			log.Fatal("failed to connect mongodb", zap.Error(err))
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = mongoAdapter.Close(closeCtx)
		}()
		if err := mongoAdapter.EnsureIndexes(ctx); err != nil {
			log.Fatal("failed to create mongodb indexes", zap.Error(err))
		}
		store = mongoAdapter
		log.Info("connected to mongodb")
	default:
		store = storage.NewMemoryAdapter()
		log.Warn("using in-memory schedule store")
	}

	var productCatalog port.ProductCatalog
	switch cfg.Catalog.Driver {
	case config.CatalogHTTP:
		productCatalog = catalog.NewHTTPCatalog(cfg.Catalog.URL, cfg.Catalog.Timeout)
	default:
		if cfg.Store.Driver != config.StoreMySQL {
			// the catalog tables live next to the schedule tables
			if err := storage.NewMySQLAdapter(db).Migrate(ctx); err != nil {
				log.Fatal("failed to migrate mysql schema", zap.Error(err))
			}
		}
		productCatalog = storage.NewMySQLCatalog(db)
	}

	var locker port.KeyLocker
	switch cfg.Lock.Driver {
	case config.LockRedis:
		locker = lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.Wait, logger.Named(log, "lock"))
	default:
		locker = lock.NewMemoryLocker(cfg.Lock.Wait)
	}

	var idempotency port.IdempotencyStore
	if rdb != nil {
		idempotency = storage.NewRedisAdapter(rdb, cfg.Idempotency.TTL)
	} else {
		idempotency = storage.NewMemoryIdempotency()
	}

	scheduleService := service.NewScheduleService(productCatalog, store, locker,
		logger.Named(log, "schedule"),
		service.WithIdempotencyStore(idempotency))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterScheduleServiceServer(grpcServer, handler.NewGRPCHandler(scheduleService, logger.Named(log, "grpc")))

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.String("port", cfg.Server.GRPCPort), zap.Error(err))
	}

	go func() {
		log.Info("gRPC server listening", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpLogger := logger.Named(log, "http")
	router := handler.NewRouter(handler.NewHTTPHandler(scheduleService, httpLogger), httpLogger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	digest := scheduler.NewScheduler(cfg.Digest.CronSchedule, scheduleService, logger.Named(log, "digest"))
	if err := digest.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	digest.Stop()
	log.Info("shutdown complete")
}

func openMySQL(ctx context.Context, cfg config.MySQLConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
