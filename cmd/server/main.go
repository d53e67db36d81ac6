package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ovasiliev/converse-server/internal/app"
	"github.com/ovasiliev/converse-server/internal/config"
	"github.com/ovasiliev/converse-server/internal/log"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "converse-server",
	Short: "Realtime chat server: presence, messaging relay, video signaling, collaborative documents",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the converse server",
	Args:  cobra.MaximumNArgs(0),
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: ./config.yaml)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	bootLogger := log.Boot()

	cfg, configPath, err := config.Load(bootLogger, configFile)
	if err != nil {
		return err
	}

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", configPath).Str("addr", cfg.Addr).Msg("starting converse server")

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
