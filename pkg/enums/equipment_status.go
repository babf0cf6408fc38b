package enums

import "fmt"

// EquipmentStatus describes the physical condition of an equipment item.
type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "available"
	EquipmentStatusMaintenance EquipmentStatus = "maintenance"
	EquipmentStatusOutOfOrder  EquipmentStatus = "out_of_order"
)

var validEquipmentStatuses = []EquipmentStatus{
	EquipmentStatusAvailable,
	EquipmentStatusMaintenance,
	EquipmentStatusOutOfOrder,
}

// String implements fmt.Stringer.
func (v EquipmentStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known EquipmentStatus.
func (v EquipmentStatus) IsValid() bool {
	for _, candidate := range validEquipmentStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseEquipmentStatus converts raw input into a EquipmentStatus.
func ParseEquipmentStatus(value string) (EquipmentStatus, error) {
	for _, candidate := range validEquipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid equipment status %q", value)
}
