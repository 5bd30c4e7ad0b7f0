package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"mako/internal/request"
)

// EndpointSend is the request-layer key for Telegram deliveries.
const EndpointSend = "telegram.send"

// Telegram pushes trade and lifecycle notifications to a chat. Calls go
// through the resilient request layer like any other outbound call.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client

	req *request.Client
}

func NewTelegram(botToken, chatID string, req *request.Client) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 15 * time.Second},
		req:      req,
	}
}

func (t *Telegram) SendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	payload, _ := json.Marshal(map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})

	return t.req.Do(context.Background(), EndpointSend, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if resp.StatusCode/100 != 2 {
			desc := gjson.GetBytes(body, "description").String()
			if desc == "" {
				desc = resp.Status
			}
			return fmt.Errorf("telegram api error: %s", desc)
		}
		if !gjson.GetBytes(body, "ok").Bool() {
			return fmt.Errorf("telegram api rejected message: %s", gjson.GetBytes(body, "description").String())
		}
		return nil
	})
}
