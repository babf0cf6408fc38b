package sites

import (
	"time"

	"github.com/angelmondragon/gearstage-backend/internal/calendar"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SiteDTO is the site payload returned to clients.
type SiteDTO struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	StartDate          string           `json:"start_date"`
	EndDate            string           `json:"end_date"`
	Location           *string          `json:"location,omitempty"`
	Client             *string          `json:"client,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
	Status             string           `json:"status"`
	Priority           string           `json:"priority"`
	Budget             *decimal.Decimal `json:"budget,omitempty"`
	CreatedBy          string           `json:"created_by"`
	CalendarEventID    *string          `json:"calendar_event_id,omitempty"`
	CalendarSyncStatus string           `json:"calendar_sync_status"`
	CalendarSyncError  *string          `json:"calendar_sync_error,omitempty"`
	CalendarSyncedAt   *time.Time       `json:"calendar_synced_at,omitempty"`
	Allocations        []AllocationDTO  `json:"allocations"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// AllocationDTO is one committed allocation line.
type AllocationDTO struct {
	EquipmentID   int64   `json:"equipment_id"`
	EquipmentName string  `json:"equipment_name"`
	Quantity      int     `json:"quantity"`
	Notes         *string `json:"notes,omitempty"`
}

// Warning is a non-fatal problem reported next to a successful save.
type Warning struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
	Details any            `json:"details,omitempty"`
}

// SaveResult is returned by every site mutation. ClientID echoes the temporary id a draft
// carried before its first save.
type SaveResult struct {
	Site     *SiteDTO  `json:"site,omitempty"`
	ClientID string    `json:"client_id,omitempty"`
	Warnings []Warning `json:"warnings"`
}

// NewSiteDTO maps a model to its payload.
func NewSiteDTO(site *models.Site) *SiteDTO {
	if site == nil {
		return nil
	}
	allocations := make([]AllocationDTO, 0, len(site.Allocations))
	for _, a := range site.Allocations {
		allocations = append(allocations, AllocationDTO{
			EquipmentID:   a.EquipmentID,
			EquipmentName: a.EquipmentName,
			Quantity:      a.Quantity,
			Notes:         a.Notes,
		})
	}
	dto := &SiteDTO{
		ID:                 site.ID,
		Name:               site.Name,
		StartDate:          site.StartDate.Format(calendar.DateLayout),
		EndDate:            site.EndDate.Format(calendar.DateLayout),
		Location:           site.Location,
		Client:             site.Client,
		Description:        site.Description,
		Notes:              site.Notes,
		Status:             string(site.Status),
		Priority:           string(site.Priority),
		CreatedBy:          site.CreatedBy,
		CalendarEventID:    site.CalendarEventID,
		CalendarSyncStatus: string(site.CalendarSyncStatus),
		CalendarSyncError:  site.CalendarSyncError,
		CalendarSyncedAt:   site.CalendarSyncedAt,
		Allocations:        allocations,
		CreatedAt:          site.CreatedAt,
		UpdatedAt:          site.UpdatedAt,
	}
	if site.Budget.Valid {
		budget := site.Budget.Decimal
		dto.Budget = &budget
	}
	return dto
}

func summaryFor(site *models.Site) calendar.Summary {
	return calendar.Summary{
		SiteID:      site.ID,
		Name:        site.Name,
		StartDate:   site.StartDate,
		EndDate:     site.EndDate,
		Location:    site.Location,
		Client:      site.Client,
		Description: site.Description,
		Notes:       site.Notes,
	}
}
