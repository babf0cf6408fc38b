package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gearstage-backend/api/middleware"
	"github.com/angelmondragon/gearstage-backend/api/responses"
	"github.com/angelmondragon/gearstage-backend/api/validators"
	"github.com/angelmondragon/gearstage-backend/internal/sites"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
)

const (
	siteDateLayout     = "2006-01-02"
	maxSiteNameLength  = 200
	maxSiteFieldLength = 500
	maxSiteTextLength  = 4000
)

type siteRequest struct {
	Name        string                  `json:"name" validate:"required,max=200"`
	StartDate   string                  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string                  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Location    *string                 `json:"location,omitempty"`
	Client      *string                 `json:"client,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Notes       *string                 `json:"notes,omitempty"`
	Status      string                  `json:"status,omitempty" validate:"omitempty,oneof=draft confirmed in_progress completed cancelled"`
	Priority    string                  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Budget      *decimal.Decimal        `json:"budget,omitempty"`
	Allocations []allocationLineRequest `json:"allocations" validate:"dive"`
	Input       string                  `json:"input,omitempty"`
}

type siteCreateRequest struct {
	siteRequest
	ClientID  string `json:"client_id,omitempty" validate:"omitempty,startswith=temp-"`
	CreatedBy string `json:"created_by,omitempty" validate:"omitempty,max=120"`
}

type siteStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft confirmed in_progress completed cancelled"`
}

func (req siteRequest) toInput() (sites.SiteInput, error) {
	start, err := time.ParseInLocation(siteDateLayout, req.StartDate, time.UTC)
	if err != nil {
		return sites.SiteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start_date")
	}
	end, err := time.ParseInLocation(siteDateLayout, req.EndDate, time.UTC)
	if err != nil {
		return sites.SiteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end_date")
	}
	input := sites.SiteInput{
		Name:        validators.SanitizeString(req.Name, maxSiteNameLength),
		StartDate:   start,
		EndDate:     end,
		Location:    validators.SanitizeOptional(req.Location, maxSiteFieldLength),
		Client:      validators.SanitizeOptional(req.Client, maxSiteFieldLength),
		Description: validators.SanitizeOptional(req.Description, maxSiteTextLength),
		Notes:       validators.SanitizeOptional(req.Notes, maxSiteTextLength),
		Status:      enums.SiteStatus(req.Status),
		Priority:    enums.SitePriority(req.Priority),
		Lines:       toEntries(req.Allocations),
		Input:       req.Input,
	}
	if req.Budget != nil {
		input.Budget = decimal.NewNullDecimal(*req.Budget)
	}
	return input, nil
}

// SiteList returns live sites overlapping the optional from/to window.
func SiteList(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := sites.ListFilter{From: from, To: to}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseSiteStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			filter.Status = &status
		}
		items, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func SiteGet(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "siteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		site, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, site)
	}
}

// SiteCreate is the first save of a draft. The creator defaults to the X-Actor header.
func SiteCreate(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload siteCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		createdBy := strings.TrimSpace(payload.CreatedBy)
		if createdBy == "" {
			createdBy = middleware.ActorFromContext(r.Context())
		}
		result, err := svc.Create(r.Context(), sites.CreateInput{
			SiteInput: input,
			ClientID:  payload.ClientID,
			CreatedBy: createdBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// SiteUpdate saves the full editable state of a stored site.
func SiteUpdate(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sites.IsTempID(chi.URLParam(r, "siteId")) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation,
				"site has not been saved yet; create it with POST /api/v1/sites"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "siteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload siteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SiteUpdateStatus(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "siteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload siteStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateStatus(r.Context(), id, enums.SiteStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SiteDelete releases the site's stock and removes it. The body carries any calendar
// warnings, so the response is 200 rather than 204.
func SiteDelete(svc sites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "siteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Delete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
