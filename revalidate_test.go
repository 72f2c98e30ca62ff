package revalidate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/always-cache/revalidate/cache"
	"github.com/always-cache/revalidate/edge"

	"github.com/rs/zerolog"
)

func newSite(t *testing.T, secret string) *Site {
	t.Helper()
	var count int32
	wikiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)
		fmt.Fprintf(w, `{"title": "Article %d", "extract": "text",
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Article"}}}`, n)
	}))
	t.Cleanup(wikiServer.Close)

	c, err := cache.NewMemCache(0)
	if err != nil {
		t.Fatal(err)
	}
	logger := zerolog.Nop()
	site := New(Config{
		Cache:            c,
		Logger:           &logger,
		WikiURL:          wikiServer.URL,
		RevalidateSecret: secret,
	})
	t.Cleanup(site.Close)
	return site
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	site := newSite(t, "")

	rr := serve(site, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `href="/revalidation"`) {
		t.Fatalf("Index: %d %s", rr.Code, rr.Body.String())
	}
	rr = serve(site, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Health: %d", rr.Code)
	}
	rr = serve(site, httptest.NewRequest("GET", "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Unknown path: %d", rr.Code)
	}
}

func TestRevalidationPage(t *testing.T) {
	site := newSite(t, "")

	rr := serve(site, httptest.NewRequest("GET", "/revalidation", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Article 1") {
		t.Fatalf("Page: %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatal("Request ID header not set")
	}
}

// TestWebhookRevalidates invalidates the tag through the webhook:
// the next page view gets the old article, the one after the refresh a new one.
func TestWebhookRevalidates(t *testing.T) {
	site := newSite(t, "")
	serve(site, httptest.NewRequest("GET", "/revalidation", nil))

	rr := serve(site, httptest.NewRequest("POST", "/api/revalidate?tag=randomWiki", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Webhook status is %d", rr.Code)
	}
	var res webhookResponse
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Revalidated || res.Tag != "randomWiki" {
		t.Fatalf("Webhook response is %+v", res)
	}

	rr = serve(site, httptest.NewRequest("GET", "/revalidation", nil))
	if !strings.Contains(rr.Body.String(), "Article 1") {
		t.Fatalf("Stale page: %s", rr.Body.String())
	}

	site.Close()
	rr = serve(site, httptest.NewRequest("GET", "/revalidation", nil))
	if !strings.Contains(rr.Body.String(), "Article 2") {
		t.Fatalf("Refreshed page: %s", rr.Body.String())
	}
}

func TestWebhookRejects(t *testing.T) {
	site := newSite(t, "s3cret")

	r := httptest.NewRequest("POST", "/api/revalidate?tag=randomWiki", nil)
	if rr := serve(site, r); rr.Code != http.StatusUnauthorized {
		t.Fatalf("Without secret: %d", rr.Code)
	}

	r = httptest.NewRequest("POST", "/api/revalidate?tag=randomWiki", nil)
	r.Header.Set(SecretHeader, "wrong")
	if rr := serve(site, r); rr.Code != http.StatusUnauthorized {
		t.Fatalf("Wrong secret: %d", rr.Code)
	}

	r = httptest.NewRequest("POST", "/api/revalidate", nil)
	r.Header.Set(SecretHeader, "s3cret")
	if rr := serve(site, r); rr.Code != http.StatusBadRequest {
		t.Fatalf("Missing tag: %d", rr.Code)
	}

	r = httptest.NewRequest("POST", "/api/revalidate?tag=randomWiki", nil)
	r.Header.Set(SecretHeader, "s3cret")
	if rr := serve(site, r); rr.Code != http.StatusAccepted {
		t.Fatalf("Valid secret: %d", rr.Code)
	}

	if rr := serve(site, httptest.NewRequest("GET", "/api/revalidate?tag=randomWiki", nil)); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET webhook: %d", rr.Code)
	}
}

func TestEdgeRewrite(t *testing.T) {
	site := newSite(t, "")

	for code, want := range map[string]string{
		"AU": "in Australia!",
		"US": "in the USA!",
		"NZ": "somewhere else in the world!",
		"":   "somewhere else in the world!",
	} {
		r := httptest.NewRequest("GET", "/edge", nil)
		if code != "" {
			r.Header.Set(edge.DefaultCountryHeader, code)
		}
		rr := serve(site, r)

		if rr.Code != http.StatusOK {
			t.Fatalf("Country %q: status %d", code, rr.Code)
		}
		if rr.Header().Get("Location") != "" {
			t.Fatalf("Country %q was redirected", code)
		}
		if !strings.Contains(rr.Body.String(), want) {
			t.Fatalf("Country %q: body %s", code, rr.Body.String())
		}
	}
}

func TestEdgeRewriteFromNetlifyGeo(t *testing.T) {
	site := newSite(t, "")

	r := httptest.NewRequest("GET", "/edge", nil)
	r.Header.Set(edge.NetlifyGeoHeader, edge.Geo{Country: &edge.Place{Code: "US"}}.Encode())
	rr := serve(site, r)
	if h := rr.Header().Get(edge.RewriteHeader); h != "/edge/usa" {
		t.Fatalf("Rewrite header is %s", h)
	}
}

func TestRegionPagesAreRoutable(t *testing.T) {
	site := newSite(t, "")

	rr := serve(site, httptest.NewRequest("GET", "/edge/australia", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Australia") {
		t.Fatalf("Region page: %d %s", rr.Code, rr.Body.String())
	}
	rr = serve(site, httptest.NewRequest("GET", "/edge/mars", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Unknown region: %d", rr.Code)
	}
}

func TestMetrics(t *testing.T) {
	site := newSite(t, "")
	serve(site, httptest.NewRequest("GET", "/edge", nil))

	rr := serve(site, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "revalidate_edge_rewrites_total") {
		t.Fatalf("Metrics do not contain edge rewrites:\n%s", body)
	}
}

func TestEdgeAcceptsHead(t *testing.T) {
	site := newSite(t, "")

	r := httptest.NewRequest("HEAD", "/edge", nil)
	r.Header.Set(edge.DefaultCountryHeader, "AU")
	rr := serve(site, r)
	if rr.Code != http.StatusOK {
		t.Fatalf("HEAD /edge: %d", rr.Code)
	}
	if h := rr.Header().Get(edge.RewriteHeader); h != "/edge/australia" {
		t.Fatalf("Rewrite header is %s", h)
	}
	if rr := serve(site, httptest.NewRequest("HEAD", "/edge/usa", nil)); rr.Code != http.StatusOK {
		t.Fatalf("HEAD /edge/usa: %d", rr.Code)
	}
}
