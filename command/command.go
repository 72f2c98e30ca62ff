// Package command models cache mutations triggered from the outside
// (form submissions, webhooks) as command objects run against a tag cache.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/always-cache/revalidate/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var ErrEmptyTag = errors.New("tag must not be empty")

var commandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "revalidate_commands_dispatched_total",
	Help: "Number of dispatched cache commands",
}, []string{"command", "result"})

type Command interface {
	// Name identifies the command in logs and metrics.
	Name() string
	Execute(ctx context.Context, c cache.TagCache) error
}

// RevalidateTag marks every response stored under Tag stale.
// The next request using the tag gets the previous value and triggers a refresh.
type RevalidateTag struct {
	Tag string
}

func (RevalidateTag) Name() string {
	return "revalidate-tag"
}

func (r RevalidateTag) Execute(ctx context.Context, c cache.TagCache) error {
	if r.Tag == "" {
		return ErrEmptyTag
	}
	if err := c.Invalidate(ctx, r.Tag); err != nil {
		return fmt.Errorf("invalidating tag %s: %w", r.Tag, err)
	}
	return nil
}

type Dispatcher struct {
	cache cache.TagCache
	log   zerolog.Logger
}

func NewDispatcher(c cache.TagCache, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		cache: c,
		log:   logger.With().Str("component", "command").Logger(),
	}
}

// Dispatch runs the command against the cache.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	err := cmd.Execute(ctx, d.cache)
	if err != nil {
		commandsDispatched.WithLabelValues(cmd.Name(), "error").Inc()
		d.log.Error().Err(err).Str("command", cmd.Name()).Interface("args", cmd).Msg("Command failed")
		return err
	}
	commandsDispatched.WithLabelValues(cmd.Name(), "ok").Inc()
	d.log.Info().Str("command", cmd.Name()).Interface("args", cmd).Msg("Command dispatched")
	return nil
}
