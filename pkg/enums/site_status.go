package enums

import "fmt"

// SiteStatus tracks the cosmetic lifecycle label of a site.
type SiteStatus string

const (
	SiteStatusDraft      SiteStatus = "draft"
	SiteStatusConfirmed  SiteStatus = "confirmed"
	SiteStatusInProgress SiteStatus = "in_progress"
	SiteStatusCompleted  SiteStatus = "completed"
	SiteStatusCancelled  SiteStatus = "cancelled"
)

var validSiteStatuses = []SiteStatus{
	SiteStatusDraft,
	SiteStatusConfirmed,
	SiteStatusInProgress,
	SiteStatusCompleted,
	SiteStatusCancelled,
}

// String implements fmt.Stringer.
func (v SiteStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SiteStatus.
func (v SiteStatus) IsValid() bool {
	for _, candidate := range validSiteStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSiteStatus converts raw input into a SiteStatus.
func ParseSiteStatus(value string) (SiteStatus, error) {
	for _, candidate := range validSiteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid site status %q", value)
}

// Mirrored reports whether sites in this status belong on the shared calendar.
func (v SiteStatus) Mirrored() bool {
	switch v {
	case SiteStatusConfirmed, SiteStatusInProgress, SiteStatusCompleted:
		return true
	default:
		return false
	}
}
