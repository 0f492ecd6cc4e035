package datadog

import (
	"testing"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/metrics"
)

func TestNewPublisherDisabledReturnsNoOp(t *testing.T) {
	pub, err := NewPublisher(&config.DataDogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	if _, ok := pub.(metrics.NoOpPublisher); !ok {
		t.Errorf("expected NoOpPublisher when disabled, got %T", pub)
	}
}

func TestMergeTagsDoesNotMutateBaseTags(t *testing.T) {
	// baseTags with spare capacity so an aliasing append would write into it.
	base := make([]string, 0, 8)
	base = append(base, "env:prod", "service:tradecache")
	p := &Publisher{baseTags: base}

	first := p.mergeTags([]string{"cache:news"})
	second := p.mergeTags([]string{"cache:market"})

	if base[0] != "env:prod" || base[1] != "service:tradecache" {
		t.Errorf("baseTags mutated: %v", base)
	}
	if first[2] != "cache:news" {
		t.Errorf("first merge overwritten by second: %v", first)
	}
	if second[2] != "cache:market" {
		t.Errorf("second merge = %v", second)
	}
}

func TestMergeTagsShortCircuits(t *testing.T) {
	p := &Publisher{baseTags: []string{"env:prod"}}

	if got := p.mergeTags(nil); len(got) != 1 || got[0] != "env:prod" {
		t.Errorf("mergeTags(nil) = %v", got)
	}

	empty := &Publisher{}
	if got := empty.mergeTags([]string{"cache:news"}); len(got) != 1 || got[0] != "cache:news" {
		t.Errorf("mergeTags with no base = %v", got)
	}
}
