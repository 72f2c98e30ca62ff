// Package edge implements the geo based rewrite of requests for /edge.
package edge

import (
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/hlog"
)

// Path the interceptor is registered on.
const Path = "/edge"

// RewriteHeader is set on rewritten responses, with the destination path as value.
const RewriteHeader = "X-Edge-Rewrite"

type Region string

const (
	RegionAustralia Region = "australia"
	RegionUSA       Region = "usa"
	RegionOther     Region = "other"
)

var rewrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "revalidate_edge_rewrites_total",
	Help: "Number of /edge requests rewritten, by destination region",
}, []string{"region"})

// Path returns the destination path for the region.
func (r Region) Path() string {
	return Path + "/" + string(r)
}

// Decide maps a country code to a region. The first matching rule wins:
// "AU" is australia, "US" is usa, everything else (including no code) is other.
func Decide(countryCode string) Region {
	switch countryCode {
	case "AU":
		return RegionAustralia
	case "US":
		return RegionUSA
	default:
		return RegionOther
	}
}

// Rewrite returns the URL the request should be served from:
// the region path resolved against the request URL, so scheme and host are kept.
func Rewrite(u *url.URL, geo Geo) *url.URL {
	return u.ResolveReference(&url.URL{Path: Decide(geo.CountryCode()).Path()})
}

// Interceptor rewrites requests in process and hands them to Next,
// the way an edge function returning a URL does. The client sees no redirect.
type Interceptor struct {
	Next http.Handler
	// Header with a plain country code, DefaultCountryHeader if empty.
	CountryHeader string
}

func (i Interceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	geo := GeoFromRequest(r, i.CountryHeader)
	target := Rewrite(r.URL, geo)
	region := Decide(geo.CountryCode())
	rewrites.WithLabelValues(string(region)).Inc()

	hlog.FromRequest(r).Trace().
		Str("country", geo.CountryCode()).
		Str("from", r.URL.Path).
		Str("to", target.Path).
		Msg("Rewriting edge request")

	rewritten := r.Clone(r.Context())
	rewritten.URL = target
	rewritten.RequestURI = target.RequestURI()
	w.Header().Set(RewriteHeader, target.Path)
	i.Next.ServeHTTP(w, rewritten)
}
