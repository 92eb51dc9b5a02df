package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bugtracker/bug-service/handlers"
	"github.com/bugtracker/bug-service/internal/bug/repository"
	"github.com/bugtracker/bug-service/internal/bug/service"
	"github.com/bugtracker/bug-service/internal/config"
	"github.com/bugtracker/bug-service/internal/database"
	"github.com/bugtracker/bug-service/internal/events"
	"github.com/bugtracker/bug-service/internal/server"
	"github.com/bugtracker/bug-service/pkg/logger"
	"github.com/bugtracker/bug-service/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// storeRepository is what main needs from either store implementation.
type storeRepository interface {
	service.Repository
	Ping(ctx context.Context) error
}

func main() {
	started := time.Now()
	// initialize logging (LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatalf("invalid arguments: %v", err)
	}
	cfg, err := config.LoadConfigWithFlags(flags)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.Debugf("log level %s, format %s", logger.LevelString(), cfg.Log.Format)
	defer func() { _ = logger.Sync() }()
	logger.Infof("config loaded: env=%s mongo=%v redis=%v kafka=%v", cfg.Server.Environment, cfg.MongoDB.URI != "", cfg.Redis.Host != "", len(cfg.Kafka.Brokers) > 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{}

	var repo storeRepository
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts, time.Second)
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		col, err := repository.EnsureCollection(ctx, client.Database(cfg.MongoDB.Database), cfg.MongoDB.Collection)
		if err != nil {
			logger.Fatalf("failed to prepare %s collection: %v", cfg.MongoDB.Collection, err)
		}
		repo = repository.NewMongoRepo(col)
		logger.Infof("using MongoDB store %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
	} else {
		repo = repository.NewMemoryRepo()
		logger.Warnf("MONGODB_URI not set; using in-memory store (records are lost on restart)")
	}
	checks["store"] = repo.Ping

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
		} else {
			logger.Infof("connected to Redis %s", cfg.Redis.Addr())
		}
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var opts []service.Option
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warnf("closing event publisher: %v", err)
			}
		}()
		opts = append(opts, service.WithPublisher(pub))
		checks["events"] = pub.Ping
		logger.Infof("publishing bug events to %s on %v", cfg.Kafka.Topic, cfg.Kafka.Brokers)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	router := server.NewRouter(server.Deps{
		Config:  cfg,
		Service: service.NewService(repo, opts...),
		Redis:   redisClient,
		Checks:  checks,
		Started: started,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("starting bug tracker on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("shutting down (timeout %s)", cfg.Server.ShutdownTimeout)
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
