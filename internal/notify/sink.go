// Package notify delivers human readable alerts to push services.
package notify

import (
	"context"
	"errors"
)

// Sink delivers a single message.
type Sink interface {
	Send(ctx context.Context, title, body string) error
}

type noop struct{}

func (noop) Send(context.Context, string, string) error { return nil }

// Noop drops every message. Used when no push service is configured.
func Noop() Sink { return noop{} }

type multi []Sink

func (m multi) Send(ctx context.Context, title, body string) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Multi sends to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	switch len(sinks) {
	case 0:
		return Noop()
	case 1:
		return sinks[0]
	default:
		return multi(sinks)
	}
}
