// Package events follows ThresholdCrossed logs emitted by the oracle contract.
package events

import (
	"slices"
	"sync"

	"price-oracle-dashboard/internal/domain"
)

const (
	DefaultFeedSize = 10
	seenLimit       = 1024
)

// Feed keeps the most recent threshold events ordered by (block, log index),
// newest first, and drops logs it has already seen.
type Feed struct {
	mu        sync.RWMutex
	max       int
	events    []domain.ThresholdEvent
	seen      map[string]struct{}
	seenOrder []string
	listeners []func(domain.ThresholdEvent)
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = DefaultFeedSize
	}
	return &Feed{max: max, seen: make(map[string]struct{})}
}

// OnEvent registers fn to be called for every new event.
func (f *Feed) OnEvent(fn func(domain.ThresholdEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Add records ev and reports whether it was new. Listeners run outside the lock.
func (f *Feed) Add(ev domain.ThresholdEvent) bool {
	f.mu.Lock()
	key := ev.Key()
	if _, dup := f.seen[key]; dup {
		f.mu.Unlock()
		return false
	}
	f.remember(key)
	f.insert(ev)
	listeners := slices.Clone(f.listeners)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
	return true
}

// Seed loads events without notifying listeners.
func (f *Feed) Seed(evs []domain.ThresholdEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range evs {
		key := ev.Key()
		if _, dup := f.seen[key]; dup {
			continue
		}
		f.remember(key)
		f.insert(ev)
	}
}

// Recent returns a copy of the retained events, newest first.
func (f *Feed) Recent() []domain.ThresholdEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]domain.ThresholdEvent(nil), f.events...)
}

func (f *Feed) insert(ev domain.ThresholdEvent) {
	i := 0
	for i < len(f.events) && !before(f.events[i], ev) {
		i++
	}
	f.events = slices.Insert(f.events, i, ev)
	if len(f.events) > f.max {
		f.events = f.events[:f.max]
	}
}

// before reports whether a was emitted before b.
func before(a, b domain.ThresholdEvent) bool {
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.LogIndex < b.LogIndex
}

func (f *Feed) remember(key string) {
	f.seen[key] = struct{}{}
	f.seenOrder = append(f.seenOrder, key)
	if len(f.seenOrder) > seenLimit {
		delete(f.seen, f.seenOrder[0])
		f.seenOrder = f.seenOrder[1:]
	}
}
