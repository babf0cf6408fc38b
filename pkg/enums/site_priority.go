package enums

import "fmt"

// SitePriority ranks sites for scheduling staff.
type SitePriority string

const (
	SitePriorityLow    SitePriority = "low"
	SitePriorityMedium SitePriority = "medium"
	SitePriorityHigh   SitePriority = "high"
)

var validSitePriorities = []SitePriority{
	SitePriorityLow,
	SitePriorityMedium,
	SitePriorityHigh,
}

// String implements fmt.Stringer.
func (v SitePriority) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SitePriority.
func (v SitePriority) IsValid() bool {
	for _, candidate := range validSitePriorities {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSitePriority converts raw input into a SitePriority.
func ParseSitePriority(value string) (SitePriority, error) {
	for _, candidate := range validSitePriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid site priority %q", value)
}
