package logging

import (
	"sync"
	"time"
)

// LogEntry is one record kept for the log stream.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Filter selects log entries. Zero fields match everything.
type Filter struct {
	Module   string
	MinLevel string
}

// Match reports whether entry passes the filter. An unknown MinLevel
// matches nothing so typos are visible to the caller.
func (f Filter) Match(entry LogEntry) bool {
	if f.Module != "" && entry.Module != f.Module {
		return false
	}
	if f.MinLevel == "" {
		return true
	}
	minLevel, ok := parseLevel(f.MinLevel)
	if !ok {
		return false
	}
	level, ok := parseLevel(entry.Level)
	return ok && level >= minLevel
}

// RingBuffer keeps the most recent log entries.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int  // slot the next Write goes to
	full    bool // entries has wrapped at least once
}

// NewRingBuffer returns a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, dropping the oldest one when the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
	rb.mu.Unlock()
}

// ReadAll returns every stored entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Tail(0, Filter{})
}

// Tail returns up to limit of the newest entries matching filter, oldest
// first. A limit of zero or less returns all matches.
func (rb *RingBuffer) Tail(limit int, filter Filter) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var matched []LogEntry
	rb.each(func(e LogEntry) {
		if filter.Match(e) {
			matched = append(matched, e)
		}
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

// Count returns the number of stored entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

// each visits stored entries oldest first. Callers hold rb.mu.
func (rb *RingBuffer) each(fn func(LogEntry)) {
	if rb.full {
		for _, e := range rb.entries[rb.next:] {
			fn(e)
		}
	}
	for _, e := range rb.entries[:rb.next] {
		fn(e)
	}
}
