// Package wiki gets random article summaries from the Wikipedia REST API
// through the tagged fetch cache.
package wiki

import (
	"context"
	"net/http"
	"time"

	"github.com/always-cache/revalidate/tagfetch"

	"github.com/rs/zerolog"
)

const (
	RandomSummaryURL = "https://en.wikipedia.org/api/rest_v1/page/random/summary"
	// Wikipedia asks for a descriptive user agent.
	UserAgent = "Netlify-ISR-Demo/1.0 (+https://revalidate.netlify.app/)"
	// Tag the summary is cached under.
	Tag              = "randomWiki"
	TTL              = 60 * time.Second
	Timeout          = 4 * time.Second
	MaxExtractLength = 200
)

type Client struct {
	fetcher *tagfetch.Fetcher
	url     string
	log     zerolog.Logger
}

// NewClient creates a client requesting url, RandomSummaryURL if empty.
func NewClient(fetcher *tagfetch.Fetcher, url string, logger zerolog.Logger) *Client {
	if url == "" {
		url = RandomSummaryURL
	}
	return &Client{
		fetcher: fetcher,
		url:     url,
		log:     logger.With().Str("component", "wiki").Logger(),
	}
}

// Request returns the tagged fetch used for the random summary.
func (c *Client) Request() tagfetch.Request {
	return tagfetch.Request{
		URL:     c.url,
		Tag:     Tag,
		TTL:     TTL,
		Timeout: Timeout,
		Header: http.Header{
			"User-Agent": []string{UserAgent},
			"Accept":     []string{"application/json"},
		},
		Validate: validSummary,
	}
}

// RandomSummary returns a random article summary, with the extract truncated
// to MaxExtractLength. It never fails: when the remote is unavailable or
// returns something unusable, Fallback is returned.
// The returned result tells where the summary came from; it has a zero Status
// when the fallback was used.
func (c *Client) RandomSummary(ctx context.Context) (ArticleSummary, tagfetch.Result) {
	res, err := c.fetcher.Fetch(ctx, c.Request())
	if err != nil {
		c.log.Warn().Err(err).Msg("Random summary unavailable, using fallback")
		return truncated(Fallback()), tagfetch.Result{}
	}
	summary, err := DecodeSummary(res.Body)
	if err != nil {
		c.log.Warn().Err(err).Str("status", string(res.Status)).Msg("Unusable summary, using fallback")
		return truncated(Fallback()), tagfetch.Result{}
	}
	return truncated(summary), res
}

// validSummary keeps undecodable summaries out of the cache,
// so the next request tries the remote again.
func validSummary(body []byte) error {
	_, err := DecodeSummary(body)
	return err
}

func truncated(summary ArticleSummary) ArticleSummary {
	summary.Extract = Truncate(summary.Extract, MaxExtractLength)
	return summary
}
