// Package tagfetch performs outbound GET requests whose responses are cached
// under a tag, with stale-while-revalidate semantics.
package tagfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/always-cache/revalidate/cache"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable wraps every failure to get a usable response from the remote:
// timeouts, network errors and non-2xx statuses.
var ErrUnavailable = errors.New("remote fetch unavailable")

const maxBodySize = 1 << 20

type Status string

const (
	// Fresh entry served from the cache.
	StatusHit Status = "hit"
	// Stale entry served from the cache while it is refreshed in the background.
	StatusStale Status = "stale"
	// Nothing usable was cached, the response was fetched and stored.
	StatusMiss Status = "miss"
)

// Request describes a tagged fetch.
type Request struct {
	URL string
	// Tag the response is stored (and invalidated) under.
	Tag string
	// How long the stored response stays fresh.
	TTL time.Duration
	// Upper bound for a single request to the remote, zero means no limit.
	Timeout time.Duration
	Header  http.Header
	// Optional check of the response body. A body it rejects is treated like
	// a failed request: it is not stored and Fetch returns ErrUnavailable.
	Validate func(body []byte) error
}

type Result struct {
	Body      []byte
	Status    Status
	FetchedAt time.Time
	Expires   time.Time
}

type Config struct {
	// Storage for fetched responses.
	Cache cache.TagCache
	// Client for remote requests. http.DefaultClient is used if nil.
	Client *http.Client
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type Fetcher struct {
	cache     cache.TagCache
	client    *http.Client
	log       zerolog.Logger
	group     singleflight.Group
	refreshes sync.WaitGroup
}

func New(config Config) *Fetcher {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	client := config.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		cache:  config.Cache,
		client: client,
		log:    logger.With().Str("component", "tagfetch").Logger(),
	}
}

// Fetch returns the response body for the request, from the cache if possible.
//
// A fresh cached entry is returned as is. A stale one (expired or invalidated) is
// returned as well, and a background refresh of the tag is started. Without a cached
// entry the remote is requested synchronously and the response stored.
// The returned error always wraps ErrUnavailable; failed fetches and bodies
// rejected by Request.Validate are never stored.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	log := f.log.With().Str("tag", req.Tag).Logger()

	entry, ok, err := f.cache.Get(ctx, req.Tag)
	if err != nil {
		log.Error().Err(err).Msg("Could not read from cache")
		ok = false
	}

	if ok && !entry.Stale(time.Now()) {
		log.Trace().Time("expires", entry.Expires).Msg("Cache hit")
		fetchResults.WithLabelValues(string(StatusHit)).Inc()
		return resultFromEntry(entry, StatusHit), nil
	}

	if ok {
		log.Trace().Bool("invalidated", entry.Invalidated).Msg("Serving stale entry, revalidating in background")
		fetchResults.WithLabelValues(string(StatusStale)).Inc()
		f.revalidate(req)
		return resultFromEntry(entry, StatusStale), nil
	}

	log.Trace().Msg("Cache miss, fetching")
	// the fetch is shared with concurrent callers, one of them going away must not fail the others
	shared := context.WithoutCancel(ctx)
	v, err, _ := f.group.Do(req.Tag, func() (interface{}, error) {
		return f.fetchAndStore(shared, req)
	})
	if err != nil {
		fetchResults.WithLabelValues("error").Inc()
		return Result{}, err
	}
	fetchResults.WithLabelValues(string(StatusMiss)).Inc()
	return v.(Result), nil
}

// Wait blocks until all background refreshes started so far have finished.
func (f *Fetcher) Wait() {
	f.refreshes.Wait()
}

// revalidate refreshes the tag in a goroutine.
// Concurrent refreshes of the same tag are collapsed into one request.
// If the refresh fails, the stale entry stays in place.
func (f *Fetcher) revalidate(req Request) {
	f.refreshes.Add(1)
	go func() {
		defer f.refreshes.Done()
		_, err, shared := f.group.Do(req.Tag, func() (interface{}, error) {
			return f.fetchAndStore(context.Background(), req)
		})
		if shared {
			return
		}
		if err != nil {
			backgroundRefreshes.WithLabelValues("error").Inc()
			f.log.Warn().Err(err).Str("tag", req.Tag).Msg("Background refresh failed, keeping stale entry")
			return
		}
		backgroundRefreshes.WithLabelValues("ok").Inc()
		f.log.Debug().Str("tag", req.Tag).Msg("Background refresh done")
	}()
}

func (f *Fetcher) fetchAndStore(ctx context.Context, req Request) (Result, error) {
	body, err := f.fetch(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if req.Validate != nil {
		if err := req.Validate(body); err != nil {
			return Result{}, fmt.Errorf("%w: invalid body: %w", ErrUnavailable, err)
		}
	}
	now := time.Now()
	// storing is best effort, the caller still gets the fresh body
	if err := f.cache.Set(ctx, req.Tag, body, req.TTL); err != nil {
		f.log.Error().Err(err).Str("tag", req.Tag).Msg("Could not write to cache")
	} else {
		f.log.Trace().Str("tag", req.Tag).Dur("ttl", req.TTL).Msg("Cache write")
	}
	return Result{
		Body:      body,
		Status:    StatusMiss,
		FetchedAt: now,
		Expires:   now.Add(req.TTL),
	}, nil
}

func (f *Fetcher) fetch(ctx context.Context, req Request) ([]byte, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	upReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	for name, values := range req.Header {
		for _, value := range values {
			upReq.Header.Add(name, value)
		}
	}

	f.log.Debug().Str("url", req.URL).Str("tag", req.Tag).Msg("Requesting content from remote")
	started := time.Now()
	res, err := f.client.Do(upReq)
	if err != nil {
		upstreamDuration.Observe(time.Since(started).Seconds())
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		upstreamDuration.Observe(time.Since(started).Seconds())
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize+1))
	upstreamDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrUnavailable, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrUnavailable, maxBodySize)
	}
	return body, nil
}

func resultFromEntry(entry cache.Entry, status Status) Result {
	return Result{
		Body:      entry.Value,
		Status:    status,
		FetchedAt: entry.StoredAt,
		Expires:   entry.Expires,
	}
}
