// Package alert delivers operator notifications over Telegram. The
// service only pushes: reconciliation drift and refresh failures go to a
// fixed operations chat, there is no inbound command handling.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org/bot"

type Telegram struct {
	token   string
	chatID  int64
	baseURL string
	client  *http.Client
}

func NewTelegram(token string, chatID int64) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SendMessage sends a text message to the configured operations chat.
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+t.token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, errResp.Description)
	}
	return nil
}
