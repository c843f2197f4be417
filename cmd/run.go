package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/bbdc-bot/internal/bbdc"
	"github.com/example/bbdc-bot/internal/captcha"
	"github.com/example/bbdc-bot/internal/config"
	"github.com/example/bbdc-bot/internal/history"
	"github.com/example/bbdc-bot/internal/notify"
	"github.com/example/bbdc-bot/internal/session"
	"github.com/example/bbdc-bot/internal/workflow"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one workflow pass: login, find a slot, notify, book",
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

			return runner.RunPass(ctx)
		},
	}
}

// newRunner wires the full stack from config: API client, captcha solvers,
// session manager, notifiers and history store.
func newRunner(cfg config.Config) (*workflow.Runner, func(), error) {
	client := bbdc.New()
	decoder := captcha.NewDecoder()

	var loginSolver captcha.Solver = captcha.AutoSolver{Decoder: decoder}
	if cfg.Captcha.Login {
		loginSolver = captcha.NewManualSolver(false)
	}
	var bookingSolver captcha.Solver = captcha.AutoSolver{Decoder: decoder}
	if cfg.Captcha.Booking {
		bookingSolver = captcha.NewManualSolver(true)
	}

	mgr := session.NewManager(client,
		session.Credentials{Username: cfg.Login.Username, Password: cfg.Login.Password},
		loginSolver, bookingSolver,
		session.RetryPolicy{MaxAttempts: cfg.Captcha.MaxAttempts, Interval: time.Second},
	)
	if cfg.BearerToken != "" {
		mgr.SeedBearer(cfg.BearerToken)
	}

	var channels notify.Multi
	if cfg.Telegram.Enabled {
		channels = append(channels, notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID))
	}
	if cfg.Discord.Enabled {
		channels = append(channels, notify.NewDiscord(cfg.Discord.Webhook))
	}
	var notifier notify.Notifier
	if len(channels) > 0 {
		notifier = channels
	}

	var hist *history.Store
	cleanup := func() {}
	if cfg.HistoryDB != "" {
		var err error
		hist, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { hist.Close() }
	}

	return &workflow.Runner{
		Session:       mgr,
		Notifier:      notifier,
		History:       hist,
		Month:         cfg.Pref.Month,
		Want:          cfg.Pref.Sessions,
		EnableBooking: cfg.EnableBooking,
		PassTimeout:   time.Duration(cfg.PassTimeout) * time.Minute,
	}, cleanup, nil
}
