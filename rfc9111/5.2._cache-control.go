package rfc9111

import (
	"strings"
	"time"
)

// §  5.2.  Cache-Control
// §
// §     The "Cache-Control" header field is used to list directives for
// §     caches along the request/response chain.

// CacheControl builds a "Cache-Control" header (/field) value.
// Directives keep the order in which they were first seen (/set).
type CacheControl struct {
	directives map[string]string
	order      []string
}

// Set adds the directive, replacing the argument if it is already present.
// Use an empty argument for directives without one (e.g. "no-store").
func (c *CacheControl) Set(directive, arg string) {
	if c.directives == nil {
		c.directives = make(map[string]string)
	}
	name := getCacheControlDirectiveName(directive)
	if _, ok := c.directives[name]; !ok {
		c.order = append(c.order, name)
	}
	c.directives[name] = arg
}

// SetDeltaSeconds adds a directive with a delta-seconds argument, e.g. "max-age=60".
func (c *CacheControl) SetDeltaSeconds(directive string, duration time.Duration) {
	c.Set(directive, toDeltaSeconds(duration))
}

// String serializes the directives as a single field value.
func (c CacheControl) String() string {
	parts := make([]string, 0, len(c.order))
	for _, name := range c.order {
		if arg := c.directives[name]; arg != "" {
			parts = append(parts, name+"="+arg)
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}

// getCacheControlDirectiveName returns a normalized name for the given directive.
func getCacheControlDirectiveName(token string) string {
	// §     Cache directives are identified by a token, to be compared case-
	// §     insensitively [...]
	return strings.ToLower(token)
}
