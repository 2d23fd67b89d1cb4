package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"flairbridge/internal/api"
	"flairbridge/internal/audit"
	"flairbridge/internal/clock"
	"flairbridge/internal/config"
	"flairbridge/internal/coordinator"
	"flairbridge/internal/entity"
	"flairbridge/internal/flair"
	"flairbridge/internal/host"
	"flairbridge/internal/metrics"
	"flairbridge/internal/model"
	"flairbridge/internal/platform"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.NewLoader(*configPath, logger).Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting Flair bridge",
		zap.String("url", cfg.Flair.BaseURL),
		zap.Bool("read_only", cfg.ReadOnly))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Bridge failed", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client := flair.NewClient(flair.Options{
		BaseURL:      cfg.Flair.BaseURL,
		ClientID:     cfg.Flair.ClientID,
		ClientSecret: cfg.Flair.ClientSecret,
		Timeout:      cfg.Flair.RequestTimeout,
	}, logger)

	store := model.NewStore(logger)
	coord := coordinator.New(client, store, clock.NewRealClock(), coordinator.Options{
		PollInterval: cfg.Flair.PollInterval,
		Debounce:     cfg.Flair.RefreshDebounce,
	}, logger)

	tracker := audit.NewTracker(cfg.API.CommandLogSize)
	notifier := platform.NewMulti()
	deps := entity.Deps{
		Store:     store,
		Gateway:   client,
		Refresher: coord,
		Notifier:  notifier,
		Recorder:  tracker,
		Logger:    logger,
		ReadOnly:  cfg.ReadOnly,
	}

	entities := platform.NewSet()
	registry := platform.NewDefaultRegistry(logger)

	hub := api.NewHub(logger)
	notifier.Add(hub)

	// Commands patch shared structure state; siblings reading it follow.
	patches := entities.NotifyOnPatch(store, notifier)
	defer patches.Unsubscribe()

	var publisher *host.Publisher
	if cfg.MQTT.Broker != "" {
		topics := host.Topics{DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix, Base: cfg.MQTT.BaseTopic}
		transport := host.NewPahoTransport(host.BrokerConfig{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			ClientID:    cfg.MQTT.ClientID,
			WillTopic:   topics.Bridge(),
			WillPayload: "offline",
		}, logger)
		publisher = host.NewPublisher(transport, entities, topics, logger)
		notifier.Add(publisher)
	} else {
		logger.Info("No MQTT broker configured, entities are served over the HTTP API only")
	}

	// Each refresh can reveal new devices; existing entities keep their
	// identity and read through the store.
	coord.AddListener(func() {
		added, err := entities.Sync(registry, platform.NewContext(deps, cfg.Imperial(), cfg.RoomModePolicy, logger))
		if err != nil {
			logger.Error("Failed to build entities", zap.Error(err))
			return
		}
		if len(added) > 0 {
			logger.Info("Entities added", zap.Int("added", len(added)), zap.Int("total", entities.Len()))
			if publisher != nil {
				publisher.PublishDiscovery(added)
			}
		}
		if publisher != nil {
			publisher.PublishStates()
		}
		for _, e := range entities.All() {
			hub.EntityChanged(e)
		}
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(coord.Metrics().Collectors()...)
	reg.MustRegister(metrics.NewCollector(entities))

	server := api.NewServer(api.Options{
		Entities: entities,
		Audit:    tracker,
		Health:   coord,
		Hub:      hub,
		Gatherer: reg,
		Port:     cfg.API.Port,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	if publisher != nil {
		// Blocks until the broker accepts the connection or Stop is called.
		g.Go(publisher.Start)
	}

	if err := coord.Start(gctx); err != nil {
		if publisher != nil {
			publisher.Stop()
		}
		_ = g.Wait()
		return err
	}

	if err := server.Start(); err != nil {
		coord.Stop()
		return err
	}

	logger.Info("Bridge running", zap.Int("entities", entities.Len()))
	<-gctx.Done()

	logger.Info("Shutting down gracefully...")
	coord.Stop()
	if err := server.Stop(); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}
	if publisher != nil {
		publisher.Stop()
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
