package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/bbdc-bot/internal/config"
	"github.com/example/bbdc-bot/internal/scheduler"
)

func newWatchCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run workflow passes on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runner, cleanup, err := newRunner(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			s := &scheduler.Scheduler{
				Runner:   runner,
				Interval: time.Duration(cfg.Interval) * time.Minute,
			}
			if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
