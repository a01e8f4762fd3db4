// Package report forwards faults to an error-tracking service.
package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type Reporter interface {
	Capture(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// New returns a Sentry-backed reporter, or a no-op one when dsn is empty.
func New(dsn, release string) (Reporter, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

type Sentry struct {
	hub *sentry.Hub
}

func (s *Sentry) Capture(err error, tags map[string]string) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

func (s *Sentry) Flush(timeout time.Duration) {
	s.hub.Flush(timeout)
}

type Nop struct{}

func (Nop) Capture(error, map[string]string) {}
func (Nop) Flush(time.Duration)              {}
