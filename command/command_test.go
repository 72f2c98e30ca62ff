package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/always-cache/revalidate/cache"

	"github.com/rs/zerolog"
)

func TestRevalidateTagMarksStale(t *testing.T) {
	ctx := context.Background()
	c, _ := cache.NewMemCache(0)
	c.Set(ctx, "randomWiki", []byte("article"), time.Hour)
	d := NewDispatcher(c, zerolog.Nop())

	if err := d.Dispatch(ctx, RevalidateTag{Tag: "randomWiki"}); err != nil {
		t.Fatal(err)
	}

	entry, ok, _ := c.Get(ctx, "randomWiki")
	if !ok || !entry.Stale(time.Now()) {
		t.Fatalf("Entry not stale after revalidation: %+v", entry)
	}
}

func TestRevalidateOtherTagLeavesEntryFresh(t *testing.T) {
	ctx := context.Background()
	c, _ := cache.NewMemCache(0)
	c.Set(ctx, "randomWiki", []byte("article"), time.Hour)
	d := NewDispatcher(c, zerolog.Nop())

	d.Dispatch(ctx, RevalidateTag{Tag: "somethingElse"})

	if entry, _, _ := c.Get(ctx, "randomWiki"); entry.Stale(time.Now()) {
		t.Fatalf("Unrelated entry became stale: %+v", entry)
	}
}

func TestEmptyTagIsRejected(t *testing.T) {
	c, _ := cache.NewMemCache(0)
	d := NewDispatcher(c, zerolog.Nop())

	if err := d.Dispatch(context.Background(), RevalidateTag{}); !errors.Is(err, ErrEmptyTag) {
		t.Fatalf("Error is %v", err)
	}
}
