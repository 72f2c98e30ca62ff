package rfc9211

import (
	"strconv"
	"strings"
)

// CacheName identifies this cache in Cache-Status header values.
const CacheName = "Revalidate"

type Status string

const (
	StatusHit Status = "hit"
	StatusFwd Status = "fwd"
)

type FwdReason string

// §  2.2.  The fwd Parameter
const (
	// The cache did not contain any responses that matched the
	// request URI.
	FwdReasonUriMiss FwdReason = "uri-miss"

	// The cache was able to select a response for the request, but
	// it was stale.
	FwdReasonStale FwdReason = "stale"
)

// CacheStatus is a single member of the Cache-Status list.
type CacheStatus struct {
	Status     Status
	FwdReason  FwdReason
	Stored     bool
	TimeToLive int
	Detail     string
}

func (cs *CacheStatus) Hit() {
	cs.Status = StatusHit
	cs.FwdReason = ""
}

func (cs *CacheStatus) Forward(reason FwdReason) {
	cs.Status = StatusFwd
	cs.FwdReason = reason
}

// String serializes the status as a Cache-Status list member, e.g.
// `Revalidate; hit; ttl=42` or `Revalidate; fwd=uri-miss; stored`.
func (cs CacheStatus) String() string {
	var b strings.Builder
	b.WriteString(CacheName)
	if cs.Status == StatusHit {
		b.WriteString("; hit")
	} else if cs.FwdReason != "" {
		b.WriteString("; fwd=" + string(cs.FwdReason))
	}
	if cs.Stored {
		b.WriteString("; stored")
	}
	if cs.TimeToLive > 0 {
		b.WriteString("; ttl=" + strconv.Itoa(cs.TimeToLive))
	}
	if cs.Detail != "" {
		// §  The detail parameter's value is a String or Token.
		b.WriteString("; detail=" + cs.Detail)
	}
	return b.String()
}
