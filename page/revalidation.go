// Package page renders the on-demand revalidation demo page and handles its
// revalidate action.
package page

import (
	"net/http"
	"time"

	"github.com/always-cache/revalidate/command"
	"github.com/always-cache/revalidate/rfc9111"
	"github.com/always-cache/revalidate/rfc9211"
	"github.com/always-cache/revalidate/tagfetch"
	"github.com/always-cache/revalidate/wiki"

	"github.com/rs/zerolog/hlog"
)

// Path the page is served on by default.
const Path = "/revalidation"

// CacheTagHeader lists the cache tags the response depends on.
const CacheTagHeader = "Cache-Tag"

// Revalidation serves the page on GET and runs the revalidate action on POST.
type Revalidation struct {
	wiki       *wiki.Client
	dispatcher *command.Dispatcher
	path       string
}

// NewRevalidation creates the page handler. The form posts back to path.
func NewRevalidation(client *wiki.Client, dispatcher *command.Dispatcher, path string) *Revalidation {
	if path == "" {
		path = Path
	}
	return &Revalidation{
		wiki:       client,
		dispatcher: dispatcher,
		path:       path,
	}
}

func (p *Revalidation) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		p.render(w, r)
	case http.MethodPost:
		p.revalidate(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (p *Revalidation) render(w http.ResponseWriter, r *http.Request) {
	article, res := p.wiki.RandomSummary(r.Context())

	fetchedAt := res.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	header := w.Header()
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("Cache-Control", dynamicCacheControl().String())
	header.Set(CacheTagHeader, wiki.Tag)
	header.Add("Cache-Status", cacheStatus(res).String())

	err := revalidationTemplate.Execute(w, struct {
		Tag         string
		TTL         int
		Action      string
		LastFetched string
		Article     wiki.ArticleSummary
	}{
		Tag:         wiki.Tag,
		TTL:         int(wiki.TTL.Seconds()),
		Action:      p.path,
		LastFetched: fetchedAt.UTC().Format(http.TimeFormat),
		Article:     article,
	})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Could not render revalidation page")
	}
}

// revalidate is the form action: it invalidates the tag and sends the browser
// back to the page, which then gets the previous value while the refresh runs.
func (p *Revalidation) revalidate(w http.ResponseWriter, r *http.Request) {
	if err := p.dispatcher.Dispatch(r.Context(), command.RevalidateTag{Tag: wiki.Tag}); err != nil {
		http.Error(w, "Could not revalidate", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, p.path, http.StatusSeeOther)
}

// dynamicCacheControl keeps browsers and shared caches from storing the page itself;
// freshness is handled by the tagged data cache.
func dynamicCacheControl() rfc9111.CacheControl {
	var cc rfc9111.CacheControl
	cc.Set("private", "")
	cc.Set("no-cache", "")
	cc.Set("no-store", "")
	cc.SetDeltaSeconds("max-age", 0)
	cc.Set("must-revalidate", "")
	return cc
}

func cacheStatus(res tagfetch.Result) rfc9211.CacheStatus {
	var cs rfc9211.CacheStatus
	switch res.Status {
	case tagfetch.StatusHit:
		cs.Hit()
		cs.TimeToLive = int(time.Until(res.Expires).Seconds())
	case tagfetch.StatusStale:
		cs.Forward(rfc9211.FwdReasonStale)
		cs.Detail = "revalidating"
	case tagfetch.StatusMiss:
		cs.Forward(rfc9211.FwdReasonUriMiss)
		cs.Stored = true
	default:
		cs.Forward(rfc9211.FwdReasonUriMiss)
		cs.Detail = "fallback"
	}
	return cs
}
