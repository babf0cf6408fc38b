package equipment

import (
	"time"

	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	"github.com/google/uuid"
)

// EquipmentDTO is the catalog payload returned to clients.
type EquipmentDTO struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Stock       int           `json:"stock"`
	Description *string       `json:"description,omitempty"`
	Status      string        `json:"status"`
	Location    *string       `json:"location,omitempty"`
	Categories  []CategoryRef `json:"categories"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CategoryRef is the category summary embedded in equipment payloads.
type CategoryRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// MovementDTO is one stock journal row.
type MovementDTO struct {
	ID         uuid.UUID  `json:"id"`
	SiteID     *uuid.UUID `json:"site_id,omitempty"`
	Kind       string     `json:"kind"`
	Delta      int        `json:"delta"`
	StockAfter int        `json:"stock_after"`
	Reason     *string    `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewEquipmentDTO maps a model to its payload.
func NewEquipmentDTO(item *models.Equipment) *EquipmentDTO {
	if item == nil {
		return nil
	}
	cats := make([]CategoryRef, 0, len(item.Categories))
	for _, c := range item.Categories {
		cats = append(cats, CategoryRef{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	return &EquipmentDTO{
		ID:          item.ID,
		Name:        item.Name,
		Stock:       item.Stock,
		Description: item.Description,
		Status:      string(item.Status),
		Location:    item.Location,
		Categories:  cats,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func newMovementDTO(m models.StockMovement) MovementDTO {
	return MovementDTO{
		ID:         m.ID,
		SiteID:     m.SiteID,
		Kind:       string(m.Kind),
		Delta:      m.Delta,
		StockAfter: m.StockAfter,
		Reason:     m.Reason,
		CreatedAt:  m.CreatedAt,
	}
}
