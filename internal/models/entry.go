package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks input rejected before it reaches storage.
var ErrValidation = errors.New("validation failed")

// MaxHours caps a single entry so hours*60 and per-summary totals stay far
// from integer overflow.
const MaxHours = 100000

// Entry is one logged duration for a named person, owned by a user.
type Entry struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"ownerUserId"`
	PersonName  string    `json:"personName"`
	Hours       int       `json:"hours"`
	Minutes     int       `json:"minutes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ValidateDuration enforces 0 <= hours <= MaxHours and 0 <= minutes <= 59.
func ValidateDuration(hours, minutes int) error {
	if hours < 0 || hours > MaxHours {
		return fmt.Errorf("%w: hours must be 0-%d", ErrValidation, MaxHours)
	}
	if minutes < 0 || minutes > 59 {
		return fmt.Errorf("%w: minutes must be 0-59", ErrValidation)
	}
	return nil
}

// ValidatePersonName rejects blank person labels.
func ValidatePersonName(personName string) error {
	if strings.TrimSpace(personName) == "" {
		return fmt.Errorf("%w: personName required", ErrValidation)
	}
	return nil
}

// ValidateEntry checks the fields required to create an entry.
func ValidateEntry(personName string, hours, minutes int) error {
	if err := ValidatePersonName(personName); err != nil {
		return err
	}
	return ValidateDuration(hours, minutes)
}

// TotalEntryMinutes sums hours*60+minutes across entries.
func TotalEntryMinutes(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Hours*60 + e.Minutes
	}
	return total
}

// FormatDuration renders a minute count as "2h 15m".
func FormatDuration(totalMinutes int) string {
	return fmt.Sprintf("%dh %dm", totalMinutes/60, totalMinutes%60)
}
