package cache

import (
	"context"
	"time"
)

// TagCache is an interface for a tagged cache provider.
// It stores the last fetched response body for a tag, together with the time
// the entry stops being fresh.
// Stale entries are still returned, so that callers can serve the previous value
// while a refresh is running (stale-while-revalidate).
//
// Implementations must be thread-safe!
type TagCache interface {
	// Get returns the entry stored for the given tag.
	// The boolean is false if nothing is stored for the tag.
	// Use Entry.Stale to find out whether the entry needs a refresh.
	Get(ctx context.Context, tag string) (Entry, bool, error)
	// Set stores the value under the given tag, fresh for ttl.
	// Setting a value clears any previous invalidation of the tag.
	Set(ctx context.Context, tag string, value []byte, ttl time.Duration) error
	// Invalidate marks the entry for the given tag stale, regardless of its ttl.
	// Invalidating a tag that is not stored is not an error.
	Invalidate(ctx context.Context, tag string) error
}

type Entry struct {
	Tag         string
	Value       []byte
	StoredAt    time.Time
	Expires     time.Time
	Invalidated bool
}

// Stale reports whether the entry should be refreshed before it is trusted again.
func (e Entry) Stale(now time.Time) bool {
	return e.Invalidated || now.After(e.Expires)
}

// TimeToLive returns the remaining freshness lifetime, zero if stale.
func (e Entry) TimeToLive(now time.Time) time.Duration {
	if e.Stale(now) {
		return 0
	}
	return e.Expires.Sub(now)
}

func newEntry(tag string, value []byte, ttl time.Duration) Entry {
	now := time.Now()
	return Entry{
		Tag:      tag,
		Value:    value,
		StoredAt: now,
		Expires:  now.Add(ttl),
	}
}
