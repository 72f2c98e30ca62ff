package edge

import (
	"html/template"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

var regionTemplate = template.Must(template.New("region").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Edge Rewrite</title>
</head>
<body>
<main>
<h1>{{.Heading}}</h1>
<p>This page was served from <code>{{.Path}}</code>. Requests for <code>/edge</code> are rewritten
based on the country the request comes from, without a redirect.</p>
{{if .Country}}<p>Your country code: <strong>{{.Country}}</strong></p>{{end}}
</main>
</body>
</html>
`))

var headings = map[Region]string{
	RegionAustralia: "You're in Australia!",
	RegionUSA:       "You're in the USA!",
	RegionOther:     "You're somewhere else in the world!",
}

// RegionPattern is the route of the region pages.
const RegionPattern = Path + "/{region}"

// RegionPage renders the destination pages of the rewrite.
// The region is the {region} URL parameter, or the last element of the request
// path when not routed. Unknown regions are not found.
type RegionPage struct {
	CountryHeader string
}

func (p RegionPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	region := Region(chi.URLParam(r, "region"))
	if region == "" {
		region = Region(path.Base(r.URL.Path))
	}
	heading, ok := headings[region]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := regionTemplate.Execute(w, struct {
		Heading string
		Path    string
		Country string
	}{
		Heading: heading,
		Path:    region.Path(),
		Country: GeoFromRequest(r, p.CountryHeader).CountryCode(),
	})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Could not render region page")
	}
}
