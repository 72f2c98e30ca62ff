package revalidate

import (
	"context"
	"net/http"
	"time"

	"github.com/always-cache/revalidate/cache"
	"github.com/always-cache/revalidate/command"
	"github.com/always-cache/revalidate/edge"
	"github.com/always-cache/revalidate/page"
	"github.com/always-cache/revalidate/tagfetch"
	"github.com/always-cache/revalidate/wiki"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Config struct {
	// Storage for tagged fetch results.
	Cache cache.TagCache
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Client for outbound requests, http.DefaultClient if nil.
	HTTPClient *http.Client
	// Random summary endpoint, wiki.RandomSummaryURL if empty.
	WikiURL string
	// Header carrying a plain country code for the edge rewrite.
	// edge.DefaultCountryHeader if empty.
	CountryHeader string
	// Shared secret for the revalidate webhook. The webhook is open if empty.
	RevalidateSecret string
}

// Site serves the revalidation and edge rewrite demos.
type Site struct {
	router     chi.Router
	fetcher    *tagfetch.Fetcher
	dispatcher *command.Dispatcher
	secret     string
	log        zerolog.Logger
}

// New sets up the site handlers on a shared cache.
func New(config Config) *Site {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	fetcher := tagfetch.New(tagfetch.Config{
		Cache:  config.Cache,
		Client: config.HTTPClient,
		Logger: &logger,
	})
	s := &Site{
		fetcher:    fetcher,
		dispatcher: command.NewDispatcher(config.Cache, logger),
		secret:     config.RevalidateSecret,
		log:        logger,
	}

	regionPage := edge.RegionPage{CountryHeader: config.CountryHeader}
	regions := chi.NewRouter()
	regions.Get(edge.RegionPattern, regionPage.ServeHTTP)
	regions.Head(edge.RegionPattern, regionPage.ServeHTTP)

	r := chi.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.Get("/", index)
	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Handle(page.Path, page.NewRevalidation(wiki.NewClient(fetcher, config.WikiURL, logger), s.dispatcher, page.Path))
	r.Post(WebhookPath, s.webhook)

	interceptor := edge.Interceptor{
		Next:          freshRouteContext(regions),
		CountryHeader: config.CountryHeader,
	}
	r.Get(edge.Path, interceptor.ServeHTTP)
	r.Head(edge.Path, interceptor.ServeHTTP)
	r.Get(edge.RegionPattern, regionPage.ServeHTTP)
	r.Head(edge.RegionPattern, regionPage.ServeHTTP)

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close waits for background refreshes to finish.
func (s *Site) Close() {
	s.fetcher.Wait()
}

// freshRouteContext hands a rewritten request to a router as if it had just
// arrived, instead of continuing the routing of the original path.
func freshRouteContext(router http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), chi.RouteCtxKey, nil)
		router.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Served")
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Revalidate</title>
</head>
<body>
<main>
<h1>Revalidate</h1>
<ul>
<li><a href="/revalidation">On-demand revalidation</a></li>
<li><a href="/edge">Edge rewrite</a></li>
</ul>
</main>
</body>
</html>
`

func index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}
