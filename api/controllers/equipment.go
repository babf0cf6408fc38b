package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gearstage-backend/api/responses"
	"github.com/angelmondragon/gearstage-backend/api/validators"
	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 500
	maxReasonLength      = 500
)

type equipmentCreateRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Stock       *int        `json:"stock" validate:"required,gte=0"`
	Description *string     `json:"description,omitempty"`
	Status      string      `json:"status,omitempty" validate:"omitempty,oneof=available maintenance out_of_order"`
	Location    *string     `json:"location,omitempty"`
	CategoryIDs []uuid.UUID `json:"category_ids,omitempty"`
}

type equipmentUpdateRequest struct {
	Name        *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string      `json:"description,omitempty"`
	Status      *string      `json:"status,omitempty" validate:"omitempty,oneof=available maintenance out_of_order"`
	Location    *string      `json:"location,omitempty"`
	CategoryIDs *[]uuid.UUID `json:"category_ids,omitempty"`
}

type stockCorrectionRequest struct {
	Stock  *int   `json:"stock" validate:"required,gte=0"`
	Reason string `json:"reason" validate:"required"`
}

// EquipmentList returns the catalog, optionally narrowed to one category.
func EquipmentList(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.List(r.Context(), equipment.ListFilter{CategoryID: categoryID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func EquipmentGet(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func EquipmentCreate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload equipmentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Create(r.Context(), equipment.CreateInput{
			Name:        payload.Name,
			Stock:       *payload.Stock,
			Description: payload.Description,
			Status:      enums.EquipmentStatus(payload.Status),
			Location:    payload.Location,
			CategoryIDs: payload.CategoryIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func EquipmentUpdate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload equipmentUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := equipment.UpdateInput{
			Name:        payload.Name,
			Description: payload.Description,
			Location:    payload.Location,
			CategoryIDs: payload.CategoryIDs,
		}
		if payload.Status != nil {
			status := enums.EquipmentStatus(*payload.Status)
			input.Status = &status
		}
		item, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func EquipmentDelete(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// EquipmentCorrectStock overrides the stock count after a physical recount.
func EquipmentCorrectStock(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload stockCorrectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.CorrectStock(r.Context(), id, equipment.CorrectStockInput{
			Stock:  *payload.Stock,
			Reason: validators.SanitizeString(payload.Reason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func EquipmentMovements(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultMovementLimit, 1, maxMovementLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movements, err := svc.ListMovements(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, movements)
	}
}
