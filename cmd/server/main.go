package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/rl1809/stockcanon/internal/adapter/handler"
	"github.com/rl1809/stockcanon/internal/adapter/storage"
	"github.com/rl1809/stockcanon/internal/config"
	"github.com/rl1809/stockcanon/internal/core/domain"
	"github.com/rl1809/stockcanon/internal/core/service"
	"github.com/rl1809/stockcanon/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("failed to ping mysql: %v", err)
	}
	logger.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("failed to connect redis: %v", err)
	}
	logger.Info("connected to redis")

	// Initialize adapters
	redisAdapter := storage.NewRedisAdapter(rdb)
	mysqlAdapter := storage.NewMySQLAdapter(db)

	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		logger.Fatalf("failed to create schema: %v", err)
	}

	// Initialize services
	conversionService := service.NewConversionService(mysqlAdapter, redisAdapter, cfg.RateCacheTTL, logger)
	stockService := service.NewStockService(mysqlAdapter, redisAdapter, conversionService)
	relabelService := service.NewRelabelService(mysqlAdapter, redisAdapter, logger, cfg.QueueSize)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, relabelService.GetJobQueue(), mysqlAdapter, logger)
		}(i)
	}
	logger.WithField("workers", cfg.WorkerCount).Info("started relabel workers")

	// Periodic relabel scan
	var scanWG sync.WaitGroup
	scanWG.Add(1)
	go func() {
		defer scanWG.Done()
		scanLoop(ctx, relabelService, cfg.RelabelInterval, cfg.RelabelBatch, logger)
	}()

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterCanonServiceServer(grpcServer, handler.NewGRPCHandler(conversionService))

	// Start gRPC server
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}

	go func() {
		logger.Infof("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Errorf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(conversionService, stockService)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes(),
	}

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	// Stop HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	// Stop gRPC server
	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Stop scanning, then close job queue and wait for workers
	cancel()
	scanWG.Wait()
	relabelService.Close()
	wg.Wait()
	logger.Info("workers stopped")

	// Close connections
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func scanLoop(ctx context.Context, svc *service.RelabelService, interval time.Duration, batch int, logger *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		queued, err := svc.Scan(ctx, batch)
		switch {
		case errors.Is(err, service.ErrScanInProgress):
			logger.Debug("relabel scan held by another instance")
		case err != nil && ctx.Err() == nil:
			config.LogError(logger, "relabel", "scanLoop", map[string]int{"batch": batch}, err)
		case queued > 0:
			logger.WithField("queued", queued).Info("queued relabel jobs")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func workerLoop(id int, queue <-chan domain.RelabelJob, db port.DatabaseRepository, logger *logrus.Logger) {
	for job := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		log := logger.WithFields(logrus.Fields{
			"worker":    id,
			"record_id": job.RecordID,
			"from":      job.From,
			"to":        job.To,
		})

		if err := db.RelabelLocation(ctx, job.RecordID, job.From, job.To); err != nil {
			if errors.Is(err, storage.ErrOptimisticLock) {
				log.Warn("location changed before relabel, skipped")
			} else {
				log.WithError(err).Error("failed to relabel location")
			}
		} else {
			log.WithField("status", domain.RelabelStatusApplied).Info("relabeled location")
		}

		cancel()
	}
}
