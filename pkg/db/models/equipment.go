package models

import (
	"time"

	"github.com/angelmondragon/gearstage-backend/pkg/enums"
)

// Equipment is a catalog item whose Stock counts the units not allocated to any open site.
type Equipment struct {
	ID          int64                 `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name        string                `gorm:"column:name;not null"`
	Stock       int                   `gorm:"column:stock;not null;default:0"`
	Description *string               `gorm:"column:description"`
	Status      enums.EquipmentStatus `gorm:"column:status;type:text;not null;default:'available'"`
	Location    *string               `gorm:"column:location"`
	Categories  []Category            `gorm:"many2many:equipment_categories"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Equipment) TableName() string { return "equipment" }
