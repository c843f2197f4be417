package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/bbdc-bot/internal/config"
	"github.com/example/bbdc-bot/internal/notify"
)

func newNotifyCmd(cfgPath *string) *cobra.Command {
	var chatID bool

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test message to the configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if chatID {
				if cfg.Telegram.Token == "" {
					return errors.New("telegram.token is required for --chat-id")
				}
				updates, err := notify.NewTelegram(cfg.Telegram.Token, "").Updates(ctx)
				if err != nil {
					return err
				}
				fmt.Println(updates)
				return nil
			}

			var channels notify.Multi
			if cfg.Telegram.Enabled {
				channels = append(channels, notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID))
			}
			if cfg.Discord.Enabled {
				channels = append(channels, notify.NewDiscord(cfg.Discord.Webhook))
			}
			if len(channels) == 0 {
				return errors.New("no notification channel enabled")
			}
			return channels.Send(ctx, "Hello!\ntest from bbdcbot")
		},
	}

	cmd.Flags().BoolVar(&chatID, "chat-id", false, "print pending telegram updates to discover the chat id")
	return cmd
}
