package fcontext

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	ridExp := "test"
	ctx = WithRequestID(ctx, ridExp)

	ridGot, ok := ctx.Value(requestID{}).(string)
	if !ok {
		t.Error("request should be string type")
	}

	if ridGot != ridExp {
		t.Errorf("exp %s got %s", ridExp, ridGot)
	}
}

func TestRequestID(t *testing.T) {
	ridExp := "test"
	ctx := context.WithValue(context.Background(), requestID{}, ridExp)

	ridGot := RequestID(ctx)
	if ridGot != ridExp {
		t.Errorf("exp %s got %s", ridExp, ridGot)
	}

	if RequestID(context.Background()) != "" {
		t.Error("exp empty request id")
	}
}

func TestWithLogger(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer

	ctx := WithRequestID(context.Background(), "rid-1")
	ctx = WithLogger(ctx, zerolog.New(&buf))
	zerolog.Ctx(ctx).Info().Msg("hello")

	is.True(bytes.Contains(buf.Bytes(), []byte(`"request_id":"rid-1"`)))
}

func TestDetach(t *testing.T) {
	is := is.New(t)

	parent, cancel := context.WithTimeout(WithRequestID(context.Background(), "rid-2"), time.Millisecond)
	cancel()

	ctx := Detach(parent)
	is.NoErr(ctx.Err())
	is.Equal(RequestID(ctx), "rid-2")
}
