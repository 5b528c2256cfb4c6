package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"demandsight/cmd/demandsight/chat"
	"demandsight/internal/assistant"
	"demandsight/internal/config"
	"demandsight/internal/dashboard"
	"demandsight/internal/forecast"
	"demandsight/internal/llm"
	"demandsight/internal/query"
	"demandsight/internal/session"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "demandsight",
	Short: "demandsight - demand forecast assistant",
	Long: `demandsight answers free-text questions about demand forecasts.

An external modeling pipeline produces monthly and daily prediction CSVs;
demandsight loads them, selects the rows relevant to a question, and asks
an OpenAI-compatible chat model for a grounded answer. The serve command
runs a local dashboard with charts; chat runs a terminal conversation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Credentials commonly live in a .env next to the binary.
		_ = godotenv.Load()

		if !cmd.Flags().Changed("config") {
			if p := os.Getenv("DEMANDSIGHT_CONFIG"); p != "" {
				configPath = p
			}
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(args)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive terminal conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a summary of the loaded prediction tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/demandsight.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadStore loads configuration and the forecast tables. Missing or
// malformed CSVs are fatal at startup.
func loadStore() (*config.Config, *forecast.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := forecast.NewStore(cfg.Data.MonthlyPath, cfg.Data.DailyPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prediction tables: %w", err)
	}
	return cfg, store, nil
}

func buildAssistant(cfg *config.Config) (*assistant.Assistant, error) {
	if err := cfg.ValidateCredential(); err != nil {
		return nil, err
	}
	client, err := llm.NewFromConfig(&cfg.LLM)
	if err != nil {
		return nil, err
	}
	return assistant.New(client, cfg.Prompts, cfg.Chat.HistoryLimit, logger), nil
}

func runServe() error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}

	asst, err := buildAssistant(cfg)
	if err != nil {
		return err
	}

	sessions, err := session.Open(cfg.Chat.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer sessions.Close()

	srv, err := dashboard.New(store, asst, sessions, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Data.Watch {
		if err := store.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch prediction files: %w", err)
		}
		defer store.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("demandsight serving",
		zap.String("listen", cfg.Server.Listen),
		zap.String("model", cfg.LLM.Model))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAsk(args []string) error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}

	asst, err := buildAssistant(cfg)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")

	analyzer := query.NewAnalyzer(store.Snapshot())
	rows, growth := analyzer.RelevantRows(question)

	ctx := context.Background()
	answer, err := asst.Ask(ctx, question, rows, growth)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

func runChat() error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}

	asst, err := buildAssistant(cfg)
	if err != nil {
		return err
	}

	sessions, err := session.Open(cfg.Chat.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer sessions.Close()

	return chat.Run(store, asst, sessions)
}

func runStats() error {
	_, store, err := loadStore()
	if err != nil {
		return err
	}

	stats := store.Snapshot().Stats()
	fmt.Printf("Predictions: %d daily rows\n", stats.TotalPredictions)
	fmt.Printf("Period:      %s -> %s\n", stats.DateRangeStart, stats.DateRangeEnd)
	fmt.Printf("Cities:      %d\n", len(stats.Cities))
	fmt.Println("Products:")
	for _, p := range stats.Products {
		fmt.Printf("  %-26s %d units\n", p, stats.TotalDemand[p])
	}
	return nil
}
