package transport

import (
	"alcyxob/coach-bot/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBlocked signals that the user permanently blocked the bot. Callers must
// treat it differently from transient failures: no retry, entitlement folded
// into a terminal state.
var ErrBlocked = errors.New("user blocked the bot")

// Sender is the outbound message transport.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// telegramSender implements Sender against the Telegram Bot API.
type telegramSender struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// NewTelegramSender creates a Sender for the configured bot token.
func NewTelegramSender(cfg config.TelegramConfig) Sender {
	return &telegramSender{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (t *telegramSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return fmt.Errorf("unexpected telegram response (status %d)", resp.StatusCode)
	}
	if api.OK {
		return nil
	}

	// 403 means the user blocked the bot; everything else is transient.
	if api.ErrorCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrBlocked, api.Description)
	}
	return fmt.Errorf("telegram API error %d: %s", api.ErrorCode, api.Description)
}
