package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gearstage-backend/api/responses"
	"github.com/angelmondragon/gearstage-backend/api/validators"
	"github.com/angelmondragon/gearstage-backend/internal/allocation"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/types"
)

// Previewer validates a draft allocation without reserving stock.
type Previewer interface {
	Preview(ctx context.Context, input allocation.PreviewInput) (*allocation.PreviewResult, error)
}

type allocationLineRequest struct {
	EquipmentID int64   `json:"equipment_id" validate:"required,gte=1"`
	Quantity    int     `json:"quantity"`
	Notes       *string `json:"notes,omitempty"`
}

type allocationPreviewRequest struct {
	SiteID *uuid.UUID              `json:"site_id,omitempty"`
	Lines  []allocationLineRequest `json:"lines" validate:"dive"`
	Input  string                  `json:"input,omitempty"`
}

type allocationPreviewResponse struct {
	Valid  bool              `json:"valid"`
	Lines  []allocation.Line `json:"lines"`
	Errors []types.APIError  `json:"errors"`
}

// AllocationPreview runs the pre-flight checks for an allocation being edited. Per-entry
// problems come back in the body with a 200; only request-level failures are errors.
func AllocationPreview(svc Previewer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload allocationPreviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Preview(r.Context(), allocation.PreviewInput{
			SiteID: payload.SiteID,
			Lines:  toEntries(payload.Lines),
			Input:  payload.Input,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := allocationPreviewResponse{
			Valid:  len(result.Errors) == 0,
			Lines:  result.Lines,
			Errors: pkgerrors.ToAPIErrors(result.Errors),
		}
		if resp.Lines == nil {
			resp.Lines = []allocation.Line{}
		}
		responses.WriteSuccess(w, resp)
	}
}

func toEntries(lines []allocationLineRequest) []allocation.Entry {
	out := make([]allocation.Entry, 0, len(lines))
	for _, line := range lines {
		out = append(out, allocation.Entry{
			EquipmentID: line.EquipmentID,
			Quantity:    line.Quantity,
			Notes:       line.Notes,
		})
	}
	return out
}
