package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"

	"github.com/ferux/homewatch"
	"github.com/ferux/homewatch/internal/fcontext"
)

// Gotify pushes messages to a gotify server.
type Gotify struct {
	url      string
	token    string
	priority int
	c        *http.Client
}

// NewGotify creates a sink posting to baseURL/message. A nil client means http.DefaultClient.
func NewGotify(baseURL, token string, priority int, c *http.Client) *Gotify {
	if c == nil {
		c = http.DefaultClient
	}

	return &Gotify{
		url:      strings.TrimRight(baseURL, "/") + "/message",
		token:    token,
		priority: priority,
		c:        c,
	}
}

type gotifyMessage struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Send implements Sink.
func (g *Gotify) Send(ctx context.Context, title, body string) error {
	logger := zerolog.Ctx(ctx).With().Str("pkg", "gotify").Logger()

	payload, err := json.Marshal(gotifyMessage{Title: title, Message: body, Priority: g.priority})
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", homewatch.UserAgent())
	request.Header.Set("X-Gotify-Key", g.token)
	if rid := fcontext.RequestID(ctx); len(rid) != 0 {
		request.Header.Set("X-Request-ID", rid)
	}

	response, err := g.c.Do(request)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	defer response.Body.Close()

	responseData, err := io.ReadAll(io.LimitReader(response.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if response.StatusCode/100 != 2 {
		return fmt.Errorf("gotify responded %d: %s", response.StatusCode, bytes.TrimSpace(responseData))
	}

	v, err := fastjson.ParseBytes(responseData)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to parse response")
		return nil
	}

	logger.Debug().Int("message_id", v.GetInt("id")).Msg("accepted message")

	return nil
}
