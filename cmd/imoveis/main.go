package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SPD-BES-2025-3/grupo1/internal/config"
	"github.com/SPD-BES-2025-3/grupo1/internal/version"
)

var envName string

var rootCmd = &cobra.Command{
	Use:   "imoveis",
	Short: "Semantic search over real-estate listings, kept in sync through Redis queues.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// A missing .env is fine; variables may come from the environment.
		_ = godotenv.Load()
		if envName == "" {
			envName = config.GetEnv()
		}
		return nil
	},
	SilenceUsage: true,
	Version:      version.Version + " (" + version.Commit + ")",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", `config environment, reads config/<env>.yaml (default $ENV or "local")`)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWorkerCmd())
	rootCmd.AddCommand(newReindexCmd())
	rootCmd.AddCommand(newQueueCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
