package indexer

import (
	"github.com/ethereum/go-ethereum/core/types"

	"campaignScope/internal/chain"
)

// logDeduper drops repeated deliveries of the same log. Keys more than window
// blocks behind the highest block seen are forgotten; anything that slips past
// is absorbed by the store's idempotent upsert.
type logDeduper struct {
	window  uint64
	highest uint64
	seen    map[chain.LogKey]struct{}
}

func newLogDeduper(window uint64) *logDeduper {
	return &logDeduper{
		window: window,
		seen:   make(map[chain.LogKey]struct{}),
	}
}

// Seen marks log as delivered and reports whether it already was.
func (d *logDeduper) Seen(log types.Log) bool {
	key := chain.KeyOf(log)
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}

	if key.BlockNumber > d.highest {
		d.highest = key.BlockNumber
		d.prune()
	}
	return false
}

// Forget unmarks log so a later delivery is processed again.
func (d *logDeduper) Forget(log types.Log) {
	delete(d.seen, chain.KeyOf(log))
}

func (d *logDeduper) prune() {
	if d.highest <= d.window {
		return
	}
	floor := d.highest - d.window
	for key := range d.seen {
		if key.BlockNumber < floor {
			delete(d.seen, key)
		}
	}
}

func (d *logDeduper) Len() int {
	return len(d.seen)
}
