package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kayz/promptforge/internal/cron"
	"github.com/kayz/promptforge/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the configured schedules until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Schedules) == 0 {
			return fmt.Errorf("no schedules configured")
		}

		rt, err := newRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		store, err := cron.NewStore(cfg.Persist.Path)
		if err != nil {
			return fmt.Errorf("open schedule store: %w", err)
		}

		scheduler := cron.NewScheduler(store, rt.agent)
		if err := scheduler.Sync(cmd.Context(), cfg.Schedules); err != nil {
			logger.Warn("[SERVE] Some schedules were skipped: %v", err)
		}
		if err := scheduler.Start(cmd.Context()); err != nil {
			store.Close()
			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("[SERVE] Received %s, shutting down", sig)
		case <-cmd.Context().Done():
		}

		return scheduler.Stop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
