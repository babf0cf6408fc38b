package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gearstage-backend/pkg/enums"
)

// Site is a staged event. Allocations hold the committed allocation: the lines last
// accepted by the inventory ledger for this site.
type Site struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Name               string                   `gorm:"column:name;not null"`
	StartDate          time.Time                `gorm:"column:start_date;type:date;not null"`
	EndDate            time.Time                `gorm:"column:end_date;type:date;not null"`
	Location           *string                  `gorm:"column:location"`
	Client             *string                  `gorm:"column:client"`
	Description        *string                  `gorm:"column:description"`
	Notes              *string                  `gorm:"column:notes"`
	Status             enums.SiteStatus         `gorm:"column:status;type:text;not null"`
	Priority           enums.SitePriority       `gorm:"column:priority;type:text;not null"`
	Budget             decimal.NullDecimal      `gorm:"column:budget;type:numeric(12,2)"`
	CreatedBy          string                   `gorm:"column:created_by;not null"`
	CalendarEventID    *string                  `gorm:"column:calendar_event_id"`
	CalendarSyncStatus enums.CalendarSyncStatus `gorm:"column:calendar_sync_status;type:text;not null"`
	CalendarSyncError  *string                  `gorm:"column:calendar_sync_error"`
	CalendarSyncedAt   *time.Time               `gorm:"column:calendar_synced_at"`
	Allocations        []SiteAllocation         `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE"`
	ReleasedAt         *time.Time               `gorm:"column:released_at"`
	DeletedAt          *time.Time               `gorm:"column:deleted_at;index"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Site) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsDeleted reports whether the site was removed and its allocation returned to stock.
func (s *Site) IsDeleted() bool {
	return s.DeletedAt != nil
}
