package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gearstage-backend/pkg/enums"
)

// StockMovement journals every stock change applied to an equipment row.
type StockMovement struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	EquipmentID int64                   `gorm:"column:equipment_id;not null;index"`
	SiteID      *uuid.UUID              `gorm:"column:site_id;type:uuid;index"`
	Kind        enums.StockMovementKind `gorm:"column:kind;type:text;not null"`
	Delta       int                     `gorm:"column:delta;not null"`
	StockAfter  int                     `gorm:"column:stock_after;not null"`
	Reason      *string                 `gorm:"column:reason"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
