package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitewatch/internal/classify"
	"sitewatch/internal/config"
	"sitewatch/internal/extract"
	"sitewatch/internal/fetch"
	"sitewatch/internal/model"
	"sitewatch/internal/monitor"
	web "sitewatch/internal/server"
	"sitewatch/internal/store"
)

var (
	logger     *zap.Logger
	configPath string
	redisAddr  string
	badgerPath string
)

var rootCmd = &cobra.Command{
	Use:   "sitewatch",
	Short: "sitewatch - AI-summarized website change monitoring",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring scheduler and the ops server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			logger.Info("shutting down...")
			cancel()
		}()

		st, err := store.NewHybridStore(ctx, cfg.Redis.Addr, cfg.Badger.Path)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		fetcher := fetch.New(cfg.Fetcher, logger.Named("fetch"))
		extractor := extract.New(cfg.Extractor)
		classifier := classify.New(cfg.Classifier, logger.Named("classify"))

		mon := monitor.New(st, fetcher, extractor, classifier, cfg.Monitor, logger.Named("monitor"))
		go mon.Run(ctx)

		srv := web.NewServer(st, logger.Named("web"))
		go func() {
			if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("ops server stopped", zap.Error(err))
			}
		}()

		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown", zap.Error(err))
		}

		logger.Info("goodbye")
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Register a URL for monitoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		rawURL := args[0]

		category, _ := cmd.Flags().GetString("category")
		frequency, _ := cmd.Flags().GetString("frequency")
		userID, _ := cmd.Flags().GetString("user")

		if !model.ValidCategory(model.Category(category)) {
			return fmt.Errorf("unknown category %q", category)
		}
		switch model.Frequency(frequency) {
		case model.FrequencyHourly, model.FrequencyDaily, model.FrequencyWeekly:
		default:
			return fmt.Errorf("unknown frequency %q", frequency)
		}

		ctx := context.Background()

		// Client mode: no Badger, the registration never writes content.
		st, err := store.NewHybridStore(ctx, cfg.Redis.Addr, "")
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		if _, err := st.FindSiteByURL(ctx, rawURL); err == nil {
			return fmt.Errorf("%w: %s", store.ErrDuplicate, rawURL)
		}

		site := model.NewTrackedSite(rawURL)
		site.UserID = userID
		site.Category = model.Category(category)
		site.Frequency = model.Frequency(frequency)

		// Capture page metadata best-effort; registration succeeds even
		// when the site is briefly unreachable.
		fetcher := fetch.New(cfg.Fetcher, logger.Named("fetch"))
		if resp, err := fetcher.Fetch(ctx, rawURL); err == nil {
			meta := extract.PageMetadata(resp.Body, rawURL)
			site.Title = meta.Title
			site.Metadata.Description = meta.Description
			site.Metadata.Favicon = meta.Favicon
			site.Metadata.Language = meta.Language
		} else {
			logger.Warn("metadata fetch failed, registering with basic data",
				zap.String("url", rawURL), zap.Error(err))
			site.Title = rawURL
		}

		if err := st.SaveSite(ctx, &site); err != nil {
			return fmt.Errorf("save site: %w", err)
		}

		logger.Info("site registered",
			zap.String("id", site.ID.String()),
			zap.String("url", rawURL),
			zap.String("title", site.Title))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [site-id]",
	Short: "Run one check for a site immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid site id: %w", err)
		}

		ctx := context.Background()
		st, err := store.NewHybridStore(ctx, cfg.Redis.Addr, cfg.Badger.Path)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		fetcher := fetch.New(cfg.Fetcher, logger.Named("fetch"))
		extractor := extract.New(cfg.Extractor)
		classifier := classify.New(cfg.Classifier, logger.Named("classify"))
		mon := monitor.New(st, fetcher, extractor, classifier, cfg.Monitor, logger.Named("monitor"))

		result, err := mon.CheckSite(ctx, id)
		if err != nil {
			return err
		}

		switch result.Outcome.Kind {
		case model.OutcomeUpdated:
			fmt.Printf("new content detected, summary %s created\n", result.Summary.ID)
		case model.OutcomeUnchanged:
			fmt.Println("no content change")
		default:
			fmt.Printf("check failed: %s\n", result.Outcome.Err)
		}
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List tracked sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ctx := context.Background()
		st, err := store.NewHybridStore(ctx, cfg.Redis.Addr, "")
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		sites, err := st.ListSites(ctx)
		if err != nil {
			return fmt.Errorf("list sites: %w", err)
		}

		for _, site := range sites {
			lastChecked := "never"
			if site.LastChecked != nil {
				lastChecked = site.LastChecked.Format(time.RFC3339)
			}
			fmt.Printf("%s  %-9s %-7s checks=%d ok=%.0f%% last=%s  %s\n",
				site.ID, site.Category, site.Frequency,
				site.Statistics.TotalChecks, site.SuccessRate(), lastChecked, site.URL)
		}
		return nil
	},
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Warn("config file not applied, continuing with defaults",
			zap.String("path", configPath), zap.Error(err))
	}
	if redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if badgerPath != "" {
		cfg.Badger.Path = badgerPath
	}
	return cfg
}

func main() {
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Address of Redis server")
	rootCmd.PersistentFlags().StringVar(&badgerPath, "badger", "", "Path to BadgerDB data directory")

	addCmd.Flags().String("category", "other", "Site category")
	addCmd.Flags().String("frequency", "daily", "Monitoring frequency: hourly, daily, weekly")
	addCmd.Flags().String("user", "", "Owning user id")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(sitesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
