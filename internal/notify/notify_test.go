package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/fcontext"
)

func TestGotifySend(t *testing.T) {
	is := is.New(t)

	var (
		got    gotifyMessage
		header http.Header
		path   string
		method string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header, path, method = r.Header, r.URL.Path, r.Method
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id": 25, "appid": 1}`))
	}))
	defer srv.Close()

	g := NewGotify(srv.URL+"/", "token-1", 5, srv.Client())
	ctx := fcontext.WithRequestID(context.Background(), "rid-1")
	is.NoErr(g.Send(ctx, "phone is Home", "phone (IP: 10.0.0.5) is now home."))

	is.Equal(path, "/message")
	is.Equal(method, http.MethodPost)
	is.Equal(header.Get("X-Gotify-Key"), "token-1")
	is.Equal(header.Get("X-Request-ID"), "rid-1")
	is.Equal(got, gotifyMessage{Title: "phone is Home", Message: "phone (IP: 10.0.0.5) is now home.", Priority: 5})
}

func TestGotifyError(t *testing.T) {
	is := is.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGotify(srv.URL, "wrong", 5, srv.Client())
	is.True(g.Send(context.Background(), "t", "b") != nil)
}

func TestTelegramSend(t *testing.T) {
	is := is.New(t)

	var path, chatID, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, chatID, text = r.URL.Path, r.URL.Query().Get("chat_id"), r.URL.Query().Get("text")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	tg := NewTelegram("key", "42", srv.Client())
	tg.baseURL = srv.URL
	is.NoErr(tg.Send(context.Background(), "title", "body"))
	is.Equal(path, "/botkey/sendMessage")
	is.Equal(chatID, "42")
	is.Equal(text, "title\nbody")

	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer fail.Close()

	tg.baseURL = fail.URL
	is.True(tg.Send(context.Background(), "title", "body") != nil)
}

type message struct{ title, body string }

type recordingSink struct {
	mu       sync.Mutex
	messages []message
	err      error
	block    chan struct{}
}

func (s *recordingSink) Send(ctx context.Context, title, body string) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, message{title, body})

	return s.err
}

func TestMulti(t *testing.T) {
	is := is.New(t)

	a, b := &recordingSink{}, &recordingSink{err: errors.New("down")}
	err := Multi(a, b).Send(context.Background(), "t", "b")
	is.True(err != nil)
	is.Equal(len(a.messages), 1)
	is.Equal(len(b.messages), 1)

	is.NoErr(Multi().Send(context.Background(), "t", "b"))
	is.Equal(Multi(a), Sink(a))
}

func TestDispatcherDoesNotBlock(t *testing.T) {
	is := is.New(t)

	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	d.Send(ctx, "t", "b")
	cancel()
	is.True(time.Since(start) < 100*time.Millisecond)

	close(sink.block)
	is.NoErr(d.Wait(context.Background()))
	is.Equal(len(sink.messages), 1)
}

func TestDispatcherSwallowsErrors(t *testing.T) {
	is := is.New(t)

	sink := &recordingSink{err: errors.New("gotify down")}
	d := NewDispatcher(sink, time.Second, zerolog.Nop())

	d.Send(context.Background(), "t", "b")
	d.Send(context.Background(), "t", "b")
	is.NoErr(d.Wait(context.Background()))
	is.Equal(len(sink.messages), 2)
}

func TestDispatcherTimeout(t *testing.T) {
	is := is.New(t)

	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, 10*time.Millisecond, zerolog.Nop())

	d.Send(context.Background(), "t", "b")
	is.NoErr(d.Wait(context.Background()))
	is.Equal(len(sink.messages), 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	d2 := NewDispatcher(&recordingSink{block: make(chan struct{})}, time.Hour, zerolog.Nop())
	d2.Send(context.Background(), "t", "b")
	is.True(errors.Is(d2.Wait(ctx), context.DeadlineExceeded))
}
