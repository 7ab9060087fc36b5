package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"synthpop/internal/app"
	"synthpop/internal/config"
	"synthpop/internal/logging"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "synthpop",
		Short: "Synthetic social population simulator",
		Long: `synthpop grows a population of synthetic actors next to the human
actors of a social feed, has them reply to and like recent human posts,
writes targeted posts at recently active actors, and keeps an inferred
profile of every human actor up to date.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "Environment files to load before reading configuration")

	rootCmd.AddCommand(
		newRunCmd(),
		newOnceCmd(),
		newMaintainCmd(),
		newInferCmd(),
		newRankCmd(),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the application for a command.
func setup(cmd *cobra.Command) (*app.App, error) {
	files, _ := cmd.Flags().GetStringSlice("env-file")
	if err := config.LoadEnv(files...); err != nil {
		return nil, err
	}
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	log := logging.NewLogger(cfg.LogLevel)
	return app.New(cmd.Context(), cfg, log)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "synthpop version %s\n", version)
		},
	}
}
