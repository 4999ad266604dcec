package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/posture/internal/config"
	"github.com/andresmejia3/posture/internal/log"
	"github.com/andresmejia3/posture/internal/store"
	"github.com/andresmejia3/posture/internal/telemetry"
)

var (
	// DB is the report store shared by subcommands
	DB store.Store
	// Cfg is the environment configuration, loaded before every command
	Cfg *config.Config
	// Metrics receives one record per analyzed session
	Metrics telemetry.Recorder = telemetry.NoOp{}

	dbURL    string
	logLevel string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "posture",
	Short:   "Head, gaze and gesture analysis for recorded talks",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		Cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if logLevel == "" {
			logLevel = Cfg.LogLevel
		}
		log.Init(logLevel)

		// The flag wins over POSTURE_DATABASE_URL and the POSTGRES_* fallback
		if dbURL == "" {
			dbURL = Cfg.DatabaseURL
		}

		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.Open(cmd.Context(), dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		// Metrics are optional; a broken collector must not block analysis.
		if m, err := telemetry.New(cmd.Context(), Cfg.Telemetry, Version); err != nil {
			log.Warn("metrics disabled", "err", err)
		} else {
			Metrics = m
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

// shutdown flushes metrics and closes the store. Commands that exit with a
// non-zero status call it themselves, since os.Exit skips PersistentPostRun.
func shutdown() {
	// Use Background here because the main context might be cancelled already (due to Ctrl+C)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Metrics.Close(ctx); err != nil {
		log.Warn("failed to flush metrics", "err", err)
	}
	Metrics = telemetry.NoOp{}
	if DB != nil {
		DB.Close(ctx)
		DB = nil
	}
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Report store URL: postgres://... or a libsql/SQLite URL (default: $POSTURE_DATABASE_URL, then file:posture.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: $POSTURE_LOG_LEVEL)")
}
