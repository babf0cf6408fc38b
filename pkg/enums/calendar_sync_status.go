package enums

import "fmt"

// CalendarSyncStatus records the outcome of the last calendar mirror attempt for a site.
type CalendarSyncStatus string

const (
	CalendarSyncStatusPending CalendarSyncStatus = "pending"
	CalendarSyncStatusSynced  CalendarSyncStatus = "synced"
	CalendarSyncStatusFailed  CalendarSyncStatus = "failed"
	CalendarSyncStatusSkipped CalendarSyncStatus = "skipped"
)

var validCalendarSyncStatuses = []CalendarSyncStatus{
	CalendarSyncStatusPending,
	CalendarSyncStatusSynced,
	CalendarSyncStatusFailed,
	CalendarSyncStatusSkipped,
}

// String implements fmt.Stringer.
func (v CalendarSyncStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CalendarSyncStatus.
func (v CalendarSyncStatus) IsValid() bool {
	for _, candidate := range validCalendarSyncStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCalendarSyncStatus converts raw input into a CalendarSyncStatus.
func ParseCalendarSyncStatus(value string) (CalendarSyncStatus, error) {
	for _, candidate := range validCalendarSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid calendar sync status %q", value)
}
