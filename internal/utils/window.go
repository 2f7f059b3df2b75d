package utils

import (
	"sync"
	"time"
)

// Window keeps timestamps of events and counts those inside a rolling
// span. Entries are appended in arrival order, so pruning stops at the
// first timestamp still inside the span.
type Window struct {
	mu   sync.Mutex
	hits []time.Time
}

func NewWindow() *Window {
	return &Window{}
}

// Add records an event at now and returns how many events remain
// inside [now-span, now].
func (w *Window) Add(now time.Time, span time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, span)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

// Count prunes and returns the number of events inside the span
// without recording a new one.
func (w *Window) Count(now time.Time, span time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, span)
	return len(w.hits)
}

// Clear drops every recorded event.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hits = nil
}

func (w *Window) prune(now time.Time, span time.Duration) {
	cutoff := now.Add(-span)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

type taggedHit struct {
	at  time.Time
	tag string
}

// TaggedWindow is a Window whose entries carry a string tag, used for
// duplicate-content history (tag = normalized content) and strike
// records (tag = detection type).
type TaggedWindow struct {
	mu   sync.Mutex
	hits []taggedHit
}

func NewTaggedWindow() *TaggedWindow {
	return &TaggedWindow{}
}

// Add records a tagged event at now and returns the total number of
// events inside the span.
func (w *TaggedWindow) Add(now time.Time, span time.Duration, tag string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, span)
	w.hits = append(w.hits, taggedHit{at: now, tag: tag})
	return len(w.hits)
}

// CountTag prunes and returns how many retained events carry tag.
func (w *TaggedWindow) CountTag(now time.Time, span time.Duration, tag string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, span)
	count := 0
	for _, hit := range w.hits {
		if hit.tag == tag {
			count++
		}
	}
	return count
}

// Count prunes and returns the number of retained events.
func (w *TaggedWindow) Count(now time.Time, span time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, span)
	return len(w.hits)
}

// Clear drops every recorded event.
func (w *TaggedWindow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hits = nil
}

func (w *TaggedWindow) prune(now time.Time, span time.Duration) {
	cutoff := now.Add(-span)
	idx := 0
	for _, hit := range w.hits {
		if hit.at.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}
