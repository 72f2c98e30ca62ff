package wiki

import (
	"encoding/json"
	"fmt"
)

// ArticleSummary is the part of a page summary that gets displayed.
type ArticleSummary struct {
	Title       string
	Description string
	Extract     string
	PageURL     string
}

// summaryPayload mirrors the fields of the REST API page summary that are used.
type summaryPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Fallback is shown whenever the remote summary cannot be used.
func Fallback() ArticleSummary {
	return ArticleSummary{
		Title:       "Random article unavailable",
		Description: "Wikipedia endpoint timed out during build.",
		Extract:     "We will try again on the next request or after background revalidation.",
		PageURL:     "https://en.wikipedia.org/wiki/Special:Random",
	}
}

// DecodeSummary decodes a page summary JSON document.
func DecodeSummary(body []byte) (ArticleSummary, error) {
	var payload summaryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ArticleSummary{}, fmt.Errorf("decoding summary: %w", err)
	}
	if payload.Title == "" {
		return ArticleSummary{}, fmt.Errorf("decoding summary: missing title")
	}
	return ArticleSummary{
		Title:       payload.Title,
		Description: payload.Description,
		Extract:     payload.Extract,
		PageURL:     payload.ContentURLs.Desktop.Page,
	}, nil
}
