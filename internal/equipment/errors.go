package equipment

import (
	"fmt"

	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
)

// StockShortage describes a failed stock check.
type StockShortage struct {
	EquipmentID   int64  `json:"equipment_id"`
	EquipmentName string `json:"equipment_name"`
	Requested     int    `json:"requested"`
	Available     int    `json:"available"`
}

// EquipmentRef names the equipment an error refers to.
type EquipmentRef struct {
	EquipmentID   int64  `json:"equipment_id"`
	EquipmentName string `json:"equipment_name,omitempty"`
}

// NotFoundError reports an unknown equipment id.
func NotFoundError(id int64) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("equipment #%d not found", id)).
		WithDetails(EquipmentRef{EquipmentID: id})
}

// InsufficientStockError reports that item cannot cover requested units.
func InsufficientStockError(item models.Equipment, requested, available int) *pkgerrors.Error {
	msg := fmt.Sprintf("insufficient stock for %s (#%d): requested %d, available %d",
		item.Name, item.ID, requested, available)
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(StockShortage{
		EquipmentID:   item.ID,
		EquipmentName: item.Name,
		Requested:     requested,
		Available:     available,
	})
}

// DuplicateError reports that item already appears in an allocation.
func DuplicateError(item models.Equipment) *pkgerrors.Error {
	msg := fmt.Sprintf("%s (#%d) is already allocated", item.Name, item.ID)
	return pkgerrors.New(pkgerrors.CodeDuplicateEquipment, msg).
		WithDetails(EquipmentRef{EquipmentID: item.ID, EquipmentName: item.Name})
}
