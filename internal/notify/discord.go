package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// discordUsername is the sender name shown in the channel.
const discordUsername = "BBDC Slots"

// Discord posts messages to a channel webhook.
type Discord struct {
	hc      *http.Client
	webhook string
}

func NewDiscord(webhook string) *Discord {
	return &Discord{
		hc:      &http.Client{Timeout: 10 * time.Second},
		webhook: webhook,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"content":  text,
		"username": discordUsername,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhook, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")

	res, err := d.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("discord webhook http %d: %s", res.StatusCode, string(body))
	}
	return nil
}
