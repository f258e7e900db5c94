package model

import (
	"strings"
	"time"
)

// HistoryTimeLayout is the layout history search matches against.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// HistoryEntry records a single status transition.
type HistoryEntry struct {
	ID        uint64    `json:"id"`
	DeviceID  DeviceID  `json:"device_id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryFilter narrows history queries. Zero value matches everything.
// Results are always ordered oldest first.
type HistoryFilter struct {
	// Search is a substring of the UTC timestamp formatted with HistoryTimeLayout.
	Search string
	Status Status
	Since  time.Time
	Until  time.Time
	// Limit keeps only the latest Limit entries. Zero keeps all.
	Limit int
}

// Match reports whether e passes every filter except Limit.
func (f HistoryFilter) Match(e HistoryEntry) bool {
	if len(f.Status) != 0 && e.Status != f.Status {
		return false
	}

	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}

	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}

	if len(f.Search) != 0 && !strings.Contains(e.Timestamp.UTC().Format(HistoryTimeLayout), f.Search) {
		return false
	}

	return true
}

// Apply filters entries, which must be ordered oldest first, and trims them to Limit.
func (f HistoryFilter) Apply(entries []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}

	return out
}
