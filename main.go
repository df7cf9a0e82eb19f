package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/internal/catalog"
	"sjsage522/promoworker/internal/classifier"
	"sjsage522/promoworker/internal/composer"
	"sjsage522/promoworker/internal/pipeline"
	"sjsage522/promoworker/logger"
	"sjsage522/promoworker/services/cache"
	"sjsage522/promoworker/services/publisher"
	"sjsage522/promoworker/services/scheduler"
)

var version = "dev"

type flags struct {
	once        bool
	dryRun      bool
	catalogFile string
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "promoworker",
		Short: "Publish discounted fitness products to a Telegram channel",
		Long: `promoworker periodically searches a product catalog for the keywords of
each category, keeps the offers above the discount threshold and posts them
to a Telegram channel, optionally mirroring them to Redis or Kafka.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, cmd.OutOrStdout())
		},
	}

	rootCmd.Flags().BoolVar(&f.once, "once", false, "Run a single pass and exit")
	rootCmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Render messages to stdout instead of publishing")
	rootCmd.Flags().StringVar(&f.catalogFile, "catalog-file", "", "Catalog and category YAML file (overrides CATALOG_FILE)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(parent context.Context, f flags, out io.Writer) error {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if f.dryRun {
		cfg.DryRun = true
	}
	if f.catalogFile != "" {
		cfg.CatalogFile = f.catalogFile
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	schedule, err := cfg.Schedule()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid schedule")
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	services, err := initializeServices(ctx, cfg, out)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	log.Info().
		Str("environment", cfg.Environment).
		Str("catalog", services.Catalog.Source()).
		Strs("publishers", cfg.Publishers).
		Bool("dry_run", cfg.DryRun).
		Msg("Starting application")

	if f.once {
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()
		stats := services.Orchestrator.RunOnce(ctx)
		fmt.Fprintln(out, stats)
		return nil
	}

	s := scheduler.New(schedule, func(ctx context.Context) {
		services.Orchestrator.RunOnce(ctx)
	})

	// Start scheduler in a goroutine
	done := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting promo worker")
		done <- s.Start(ctx)
	}()

	// Wait for shutdown signal or scheduler exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Msg("Scheduler exited with error")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
	return nil
}

// Services holds all the initialized services
type Services struct {
	Cache        cache.CacheService
	Catalog      catalog.Client
	Publisher    publisher.Publisher
	Orchestrator *pipeline.Orchestrator
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.LogError("publisher", err, "Failed to close publisher")
		}
	}
}

// initializeServices builds every component from the configuration
func initializeServices(ctx context.Context, cfg *config.Config, out io.Writer) (*Services, error) {
	services := &Services{}

	file, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	cls, err := classifier.FromConfig(file.Categories)
	if err != nil {
		return nil, err
	}

	comp, err := composer.New(cls.Categories(), cfg.CurrencySymbol)
	if err != nil {
		return nil, err
	}

	// Initialize cache service
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.ForCache().Warn().
				Err(err).
				Str("addr", cfg.MemcacheAddr).
				Msg("Memcache unreachable; rate limit blocks are not shared until it recovers")
		} else {
			logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Using Memcache for catalog rate limit blocks")
		}
		services.Cache = mc
	}

	services.Catalog, err = catalog.New(cfg, file, services.Cache)
	if err != nil {
		return nil, err
	}

	services.Publisher, err = publisher.NewFromConfig(ctx, cfg, out)
	if err != nil {
		return nil, err
	}

	services.Orchestrator, err = pipeline.New(pipeline.Options{
		Catalog:    services.Catalog,
		Publisher:  services.Publisher,
		Classifier: cls,
		Composer:   comp,
		Policy: composer.Policy{
			MinDiscountPercent: cfg.MinDiscountPercent,
			MinRating:          cfg.MinRating,
		},
		SearchLimit:       cfg.SearchLimit,
		SendDelay:         cfg.SendDelay,
		ClassifyByKeyword: cfg.ClassifyByKeyword,
	})
	if err != nil {
		services.Cleanup()
		return nil, err
	}

	return services, nil
}
