package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramBase = "https://api.telegram.org"

// Telegram sends messages through the Bot API.
type Telegram struct {
	hc     *http.Client
	base   string
	token  string
	chatID string
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		hc:     &http.Client{Timeout: 10 * time.Second},
		base:   defaultTelegramBase,
		token:  token,
		chatID: chatID,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, text string) error {
	q := url.Values{}
	q.Set("chat_id", t.chatID)
	q.Set("text", text)
	u := fmt.Sprintf("%s/bot%s/sendMessage?%s", strings.TrimRight(t.base, "/"), t.token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	res, err := t.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("telegram sendMessage http %d: %s", res.StatusCode, string(body))
	}
	return nil
}

// Updates fetches the bot's pending updates; used once to discover the chat
// id to configure.
func (t *Telegram) Updates(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s/bot%s/getUpdates", strings.TrimRight(t.base, "/"), t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	res, err := t.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("telegram getUpdates http %d: %s", res.StatusCode, string(body))
	}
	return string(body), nil
}
