package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dex_watch/internal/app"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
	addrFlag   string

	rootCmd = &cobra.Command{
		Use:           "dexwatch",
		Short:         "watch up to three DEX pairs",
		Long:          "dexwatch polls DexScreener for a small watch-list and pushes prices to an on-page overlay",
		Version:       formatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "run the poller, the settings API and the overlay stream",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "settings API address (default: server.addr from config)")

	rootCmd.AddCommand(serveCmd, watchCmd, quotesCmd, widgetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := app.NewBootstrap(configPath)
	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return err
	}
	defer bootstrap.Close()

	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("❌ Server stopped with error", slog.Any("error", err))
		return err
	}
	slog.Info("👋 Shutdown complete")
	return nil
}

func formatVersion() string {
	return fmt.Sprintf(
		"Version: %s\nCommit: %s\nDate: %s",
		version, commit, date,
	)
}
