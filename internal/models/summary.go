package models

import "time"

// SavedEntry is the snapshot form of an Entry kept inside a SavedSummary.
type SavedEntry struct {
	Hours     int       `json:"hours" validate:"gte=0,lte=100000"`
	Minutes   int       `json:"minutes" validate:"gte=0,lte=59"`
	CreatedAt time.Time `json:"createdAt"`
}

// SavedSummary is the point-in-time snapshot of one person's entries.
// There is at most one per (OwnerUserID, PersonName).
type SavedSummary struct {
	ID           string       `json:"id"`
	OwnerUserID  string       `json:"ownerUserId"`
	PersonName   string       `json:"personName"`
	Entries      []SavedEntry `json:"entries"`
	TotalMinutes int          `json:"totalMinutes"`
	SavedAt      time.Time    `json:"savedAt"`
}

// TotalMinutes sums hours*60+minutes across saved entries.
func TotalMinutes(entries []SavedEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Hours*60 + e.Minutes
	}
	return total
}

// PrepareSavedEntries validates a snapshot and fills missing timestamps with now.
// The input slice is not modified.
func PrepareSavedEntries(entries []SavedEntry, now time.Time) ([]SavedEntry, error) {
	out := make([]SavedEntry, len(entries))
	for i, e := range entries {
		if err := ValidateDuration(e.Hours, e.Minutes); err != nil {
			return nil, err
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		out[i] = e
	}
	return out, nil
}

// SnapshotOf converts live entries into their saved form.
func SnapshotOf(entries []Entry) []SavedEntry {
	out := make([]SavedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SavedEntry{Hours: e.Hours, Minutes: e.Minutes, CreatedAt: e.CreatedAt})
	}
	return out
}
