package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SiteAllocation is one committed (equipment, quantity) line of a site.
type SiteAllocation struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SiteID        uuid.UUID `gorm:"column:site_id;type:uuid;not null;uniqueIndex:ux_site_allocations_site_equipment"`
	EquipmentID   int64     `gorm:"column:equipment_id;not null;uniqueIndex:ux_site_allocations_site_equipment"`
	EquipmentName string    `gorm:"column:equipment_name;not null"`
	Quantity      int       `gorm:"column:quantity;not null"`
	Notes         *string   `gorm:"column:notes"`
	Position      int       `gorm:"column:position;not null;default:0"`
}

func (a *SiteAllocation) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
