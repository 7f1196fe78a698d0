package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/senyabanana/procurement-service/internal/cache"
	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/router"
	"github.com/senyabanana/procurement-service/internal/router/config"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var runMode = flag.String("m", "", "Run mode: 'api', 'worker' (deadline sweep), 'all'. Overrides RUN_MODE")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}
	if *runMode != "" {
		cfg.RunMode = *runMode
		if err := cfg.Validate(); err != nil {
			log.Fatal("invalid run mode:", err)
		}
	}

	logger := log.New(os.Stdout, "INFO: ", log.LstdFlags)

	var repo repository.Repository
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Println("using in-memory store")
		repo = repository.NewMemoryRepository(cfg.RepositoryTimeout)
	default:
		if err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn); err != nil {
			log.Fatal(err)
		}
		log.Println("db migrated successfully")

		var dbPool *pgxpool.Pool
		dbPool, err = db.InitDb(cfg)
		if err != nil {
			log.Fatalf("error initializing database: %v", err)
		}
		defer dbPool.Close()
		repo = repository.NewPostgresRepository(dbPool, cfg.RepositoryTimeout)
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("error initializing kafka publisher: %v", err)
		}
		publisher = kafkaPublisher
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Printf("error closing event publisher: %v", err)
		}
	}()

	deps := services.Dependencies{Repo: repo, Events: publisher, Logger: logger}
	requestService := services.NewRequestService(deps, cfg.AwardWindow)

	var wg sync.WaitGroup
	var apiSrv *http.Server
	var taskSrv *asynq.Server
	var scheduler *asynq.Scheduler
	var redisClient *redis.Client
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()

	apiMode := func() {
		h := router.Handlers{
			Requests:     handlers.NewRequestHandler(requestService, services.NewOpportunityService(deps), logger, cfg.RequestTimeout),
			Bids:         handlers.NewBidHandler(services.NewBidService(deps), logger, cfg.RequestTimeout),
			Negotiations: handlers.NewNegotiationHandler(services.NewNegotiationService(deps), logger, cfg.RequestTimeout),
			Queries:      handlers.NewQueryHandler(services.NewQueryService(deps), logger, cfg.RequestTimeout),
			Allocations:  handlers.NewAllocationHandler(services.NewAllocationService(deps), logger, cfg.RequestTimeout),
		}
		apiSrv = &http.Server{
			Addr:    cfg.ServerAddress,
			Handler: router.InitRoutes(h),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("server is listening on %s...", cfg.ServerAddress)
			if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server failed: %v", err)
			}
		}()
	}

	workerMode := func() {
		processor := tasks.NewTaskProcessor(requestService, logger)
		if cfg.RedisAddr == "" {
			logger.Printf("REDIS_ADDR is not set, running deadline sweep locally every %s", cfg.SweepInterval)
			wg.Add(1)
			go func() {
				defer wg.Done()
				processor.RunLocal(sweepCtx, cfg.SweepInterval)
			}()
			return
		}

		var err error
		redisClient, err = cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		taskSrv = tasks.SetupServer(redisClient, logger)
		if err := taskSrv.Start(processor.Mux()); err != nil {
			log.Fatalf("task server failed: %v", err)
		}
		scheduler, err = tasks.SetupScheduler(redisClient, cfg.SweepCron)
		if err != nil {
			log.Fatal(err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatalf("scheduler failed: %v", err)
		}
	}

	switch cfg.RunMode {
	case config.ModeAPI:
		apiMode()
	case config.ModeWorker:
		workerMode()
	default:
		apiMode()
		workerMode()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("received signal: %s, shutting down...", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if apiSrv != nil {
		if err := apiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}
	stopSweep()

	wg.Wait()
	if err := cache.DisconnectRedis(redisClient); err != nil {
		log.Printf("error disconnecting from Redis: %v", err)
	}
	log.Println("server gracefully stopped")
}
