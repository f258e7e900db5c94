package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"

	"github.com/ferux/homewatch"
)

const telegramURL = "https://api.telegram.org"

// Telegram sends messages to a chat through the bot api.
type Telegram struct {
	baseURL string
	apiKey  string
	chatID  string
	c       *http.Client
}

// NewTelegram creates telegram sink. A nil client means http.DefaultClient.
func NewTelegram(apiKey, chatID string, c *http.Client) *Telegram {
	if c == nil {
		c = http.DefaultClient
	}

	return &Telegram{baseURL: telegramURL, apiKey: apiKey, chatID: chatID, c: c}
}

// Send implements Sink. Title and body are sent as two lines of one message.
func (t *Telegram) Send(ctx context.Context, title, body string) (err error) {
	logger := zerolog.Ctx(ctx).With().Str("pkg", "telegram").Logger()

	requestURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.apiKey)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}

	values := request.URL.Query()
	values.Set("chat_id", t.chatID)
	values.Set("text", title+"\n"+body)

	request.URL.RawQuery = values.Encode()
	request.Header.Set("User-Agent", homewatch.UserAgent())

	response, err := t.c.Do(request)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	defer response.Body.Close()

	responseData, err := io.ReadAll(io.LimitReader(response.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	v, err := fastjson.ParseBytes(responseData)
	if err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if !v.GetBool("ok") {
		return fmt.Errorf("telegram responded %d: %s", response.StatusCode, v.GetStringBytes("description"))
	}

	logger.Debug().Int64("message_id", v.GetInt64("result", "message_id")).Msg("response from telegram")

	return nil
}
