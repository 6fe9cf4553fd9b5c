package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manthan/internal/config"
	"manthan/internal/embed"
	"manthan/internal/enrich"
	"manthan/internal/entities"
	"manthan/internal/label"
	"manthan/internal/logger"
	"manthan/internal/pipeline"
	"manthan/internal/refine"
	"manthan/internal/server"
	"manthan/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "manthan",
	Short: "Political-bias news aggregation pipeline for Indian media",
	Long: `manthan ingests articles from a configured set of Indian publishers,
groups near-simultaneous reports of the same event into stories, and attaches
neutral labels plus a bias distribution to each story.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .manthan.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(statsCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service with scheduled pipeline cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		st, err := store.New(cfg.App.DBPath)
		if err != nil {
			// Both the configured path and the in-memory fallback failed.
			logger.Error("serve: cannot open store", err)
			os.Exit(1)
		}
		defer st.Close()

		coordinator := buildCoordinator(cmd.Context(), cfg, st)

		srv := server.New(st, coordinator, cfg.Server)

		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Pipeline.Schedule, func() {
			logger.Info("cron: pipeline cycle triggered")
			if _, err := coordinator.Run(context.Background()); err != nil {
				logger.Error("cron: pipeline cycle failed", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid pipeline schedule: %w", err)
		}
		if cfg.Pipeline.RefinerSchedule != "" {
			refiner := refine.New(st, buildLabeler(cmd.Context(), cfg))
			if _, err := scheduler.AddFunc(cfg.Pipeline.RefinerSchedule, func() {
				logger.Info("cron: coherence audit triggered")
				if err := refiner.Refine(context.Background()); err != nil {
					logger.Error("cron: coherence audit failed", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid refiner schedule: %w", err)
			}
		}
		scheduler.Start()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
		}

		// Graceful shutdown: stop scheduling, let running jobs and
		// in-flight requests finish their current transactions.
		cronCtx := scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("serve: shutdown error", err)
		}
		select {
		case <-cronCtx.Done():
		case <-shutdownCtx.Done():
		}
		return nil
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run one analysis pipeline cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		st, err := store.New(cfg.App.DBPath)
		if err != nil {
			logger.Error("pipeline: cannot open store", err)
			os.Exit(1)
		}
		defer st.Close()

		coordinator := buildCoordinator(cmd.Context(), cfg, st)
		result, err := coordinator.Run(cmd.Context())
		if err != nil {
			return err
		}

		out, _ := json.Marshal(result)
		fmt.Println(string(out))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		st, err := store.New(cfg.App.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		counters, err := st.Count()
		if err != nil {
			return err
		}

		out, _ := json.MarshalIndent(counters, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

// buildCoordinator wires models and store into a pipeline coordinator. Model
// construction that fails at startup (a missing API key, an unreachable
// backend) surfaces as a per-run error rather than killing the process: the
// ingest and read endpoints keep serving cached clusters.
func buildCoordinator(ctx context.Context, cfg *config.Config, st *store.Store) server.PipelineRunner {
	embedder, err := embed.NewGemini(ctx, cfg.Gemini)
	if err != nil {
		logger.Error("pipeline: embedder unavailable, runs will fail until configured", err)
		return failingRunner{err: err}
	}

	extractor := entities.New(ctx, entities.NewHTTPTagger(cfg.NER))
	labeler := buildLabeler(ctx, cfg)

	enricher := enrich.New(embedder, extractor)
	refiner := refine.New(st, labeler)

	return pipeline.New(st, enricher, labeler, refiner).
		WithWindow(time.Duration(cfg.Pipeline.MaxAgeHours)*time.Hour, cfg.Pipeline.SelectLimit)
}

func buildLabeler(ctx context.Context, cfg *config.Config) *label.Labeler {
	gen, err := label.NewGemini(ctx, cfg.Gemini)
	if err != nil {
		// A nil generator makes every label fall back deterministically.
		logger.Error("pipeline: labeler unavailable, labels will use fallbacks", err)
		return label.New(failingGenerator{err: err}, cfg.Gemini.Timeout)
	}
	return label.New(gen, cfg.Gemini.Timeout)
}

type failingRunner struct{ err error }

func (f failingRunner) Run(ctx context.Context) (*pipeline.Result, error) {
	return nil, f.err
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", f.err
}
