package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forgeci/internal/adapters/primary/http/handlers"
	"forgeci/internal/adapters/primary/http/middleware"
	"forgeci/internal/adapters/secondary/covreport"
	"forgeci/internal/adapters/secondary/kubernetes"
	"forgeci/internal/adapters/secondary/local"
	"forgeci/internal/adapters/secondary/postgres"
	"forgeci/internal/config"
	"forgeci/internal/core/sched"
	"forgeci/internal/core/services"
	"forgeci/internal/runner"

	output "forgeci/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	// Secondary adapters
	workflowRepo := postgres.NewWorkflowRepository(pool)
	runRepo := postgres.NewRunRepository(pool)
	jobRepo := postgres.NewJobRepository(pool)
	secretRepo := postgres.NewSecretRepository(pool)
	coverageRepo := postgres.NewCoverageRepository(pool)

	// Step executor
	var executor output.JobExecutor = local.NewExecutor()
	if cfg.Runner.Executor == "kubernetes" {
		if !cfg.Kubernetes.Enabled {
			log.Fatal("RUNNER_EXECUTOR=kubernetes requires K8S_ENABLED=true")
		}
		k8sExec, err := kubernetes.NewExecutor(&cfg.Kubernetes)
		if err != nil {
			log.Fatalf("kubernetes executor init failed: %v", err)
		}
		executor = k8sExec
	}
	log.Infof("step executor: %s", executor.Name())

	// Coverage uploader (optional)
	uploader := covreport.NewClient(&cfg.Coverage)
	if uploader.IsAvailable() {
		log.Info("coverage uploader initialized")
	} else {
		log.Info("coverage upload disabled")
	}

	// Core services
	workflowSvc := services.NewWorkflowService(workflowRepo, runRepo)
	runSvc := services.NewRunService(workflowRepo, runRepo, jobRepo)
	jobSvc := services.NewJobService(jobRepo)
	secretSvc := services.NewSecretService(secretRepo)
	coverageSvc := services.NewCoverageService(coverageRepo, jobRepo, runRepo, uploader)

	// Background workers share one cancelable context.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	workerPool := runner.NewPool(
		cfg.Runner.Workers,
		cfg.Runner.PollInterval,
		cfg.Runner.StepTimeout,
		jobRepo, workflowRepo, runSvc, secretSvc, executor,
	)
	go workerPool.Run(bgCtx)

	if cfg.Scheduler.Enabled {
		scheduler := sched.New(cfg.Scheduler.Interval, workflowRepo, runSvc)
		go scheduler.Run(bgCtx)
	} else {
		log.Info("scheduler disabled")
	}

	go retryCoverageUploads(bgCtx, coverageSvc)

	// Primary adapter
	h := handlers.New(workflowSvc, runSvc, jobSvc, secretSvc, coverageSvc)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/forgeci")
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func retryCoverageUploads(ctx context.Context, coverageSvc *services.CoverageService) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := coverageSvc.RetryPending(ctx, 50); err != nil {
				log.WithError(err).Warn("coverage upload retry failed")
			}
		}
	}
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
