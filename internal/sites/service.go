package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/gearstage-backend/internal/allocation"
	"github.com/angelmondragon/gearstage-backend/internal/calendar"
	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/internal/inventory"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TempIDPrefix marks client-side draft ids that have never been saved.
const TempIDPrefix = "temp-"

const defaultResyncBatch = 25

// Service runs the site lifecycle: every save or delete moves stock through the inventory
// ledger in one transaction, then mirrors the site onto the shared calendar.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]SiteDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SiteDTO, error)
	Create(ctx context.Context, input CreateInput) (*SaveResult, error)
	Update(ctx context.Context, id uuid.UUID, input SiteInput) (*SaveResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SiteStatus) (*SaveResult, error)
	Delete(ctx context.Context, id uuid.UUID) (*SaveResult, error)
	SyncCalendar(ctx context.Context, id uuid.UUID) error
	ResyncFailed(ctx context.Context, limit int) (ResyncReport, error)
}

// SiteInput is the full editable state of a site, including its allocation. Lines and the
// shorthand Input are combined, structured lines first.
type SiteInput struct {
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Location    *string
	Client      *string
	Description *string
	Notes       *string
	Status      enums.SiteStatus
	Priority    enums.SitePriority
	Budget      decimal.NullDecimal
	Lines       []allocation.Entry
	Input       string
}

// CreateInput is the first save of a draft.
type CreateInput struct {
	SiteInput
	ClientID  string
	CreatedBy string
}

// ResyncReport summarizes one calendar resync pass.
type ResyncReport struct {
	Attempted int
	Synced    int
	Failed    int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    *Repository
	catalog *equipment.Repository
	ledger  *inventory.Ledger
	mirror  calendar.Mirror
	tx      txRunner
	logg    *logger.Logger
}

// NewService wires the site lifecycle.
func NewService(repo *Repository, catalog *equipment.Repository, ledger *inventory.Ledger, mirror calendar.Mirror, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("site repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if mirror == nil {
		return nil, fmt.Errorf("calendar mirror required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		catalog: catalog,
		ledger:  ledger,
		mirror:  mirror,
		tx:      tx,
		logg:    logg,
	}, nil
}

// IsTempID reports whether id is a client draft id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix) && len(id) > len(TempIDPrefix)
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]SiteDTO, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *filter.Status))
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sites")
	}
	out := make([]SiteDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewSiteDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SiteDTO, error) {
	site, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, siteNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load site")
	}
	return NewSiteDTO(site), nil
}

// Create persists a draft: the site row, the reservation of its allocation and the
// committed allocation rows commit together or not at all.
func (s *service) Create(ctx context.Context, input CreateInput) (*SaveResult, error) {
	if input.ClientID != "" && !IsTempID(input.ClientID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("client_id must start with %q", TempIDPrefix))
	}
	createdBy := strings.TrimSpace(input.CreatedBy)
	if createdBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created_by is required")
	}
	fields, err := normalizeInput(input.SiteInput)
	if err != nil {
		return nil, err
	}

	site := &models.Site{
		ID:                 uuid.New(),
		CreatedBy:          createdBy,
		CalendarSyncStatus: enums.CalendarSyncStatusPending,
	}
	applyFields(site, fields)

	var lines []inventory.Line
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		set, err := s.buildSet(ctx, tx, nil, fields)
		if err != nil {
			return err
		}
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, site); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert site")
		}
		lines = set.LedgerLines()
		if err := s.ledger.Reserve(ctx, tx, site.ID, lines); err != nil {
			return err
		}
		if err := txRepo.ReplaceAllocations(ctx, site.ID, allocationRows(set)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert site allocation")
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "create site")
	}

	s.logCommitted(ctx, inventory.OpReserve, site.ID, lines)
	return s.finish(ctx, site.ID, input.ClientID)
}

// Update saves an edited site. The committed allocation is read under the site row lock
// and reconciled against the new lines; on failure the old allocation stays committed.
func (s *service) Update(ctx context.Context, id uuid.UUID, input SiteInput) (*SaveResult, error) {
	fields, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	var next []inventory.Line
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		site, err := s.lockLive(ctx, txRepo, id)
		if err != nil {
			return err
		}
		previous := committedLines(site.Allocations)
		set, err := s.buildSet(ctx, tx, creditOf(site.Allocations), fields)
		if err != nil {
			return err
		}
		next = set.LedgerLines()
		if err := s.ledger.Reconcile(ctx, tx, id, previous, next); err != nil {
			return err
		}
		applyFields(site, fields)
		if err := txRepo.Update(ctx, site); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update site")
		}
		if err := txRepo.ReplaceAllocations(ctx, id, allocationRows(set)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace site allocation")
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "update site")
	}

	s.logCommitted(ctx, inventory.OpReconcile, id, next)
	return s.finish(ctx, id, "")
}

// UpdateStatus changes the cosmetic status and re-syncs the calendar; stock is untouched.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SiteStatus) (*SaveResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.lockLive(ctx, txRepo, id); err != nil {
			return err
		}
		if err := txRepo.UpdateStatus(ctx, id, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update site status")
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "update site status")
	}

	logCtx := s.logg.WithFields(s.logg.WithSiteID(ctx, id.String()), map[string]any{"status": status})
	s.logg.Info(logCtx, "site status updated")
	return s.finish(ctx, id, "")
}

// Delete releases the committed allocation and soft-deletes the site. The released_at
// flag is checked under the site row lock, so a repeated delete is NOT_FOUND and never
// returns stock twice.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (*SaveResult, error) {
	var released []inventory.Line
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		site, err := s.lockLive(ctx, txRepo, id)
		if err != nil {
			return err
		}
		released = committedLines(site.Allocations)
		if err := s.ledger.Release(ctx, tx, id, released); err != nil {
			return err
		}
		if err := txRepo.MarkReleased(ctx, id, time.Now().UTC()); err != nil {
			if isNotFound(err) {
				return siteNotFound(id)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark site released")
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "delete site")
	}

	s.logCommitted(ctx, inventory.OpRelease, id, released)
	result, err := s.finish(ctx, id, "")
	if err != nil {
		return nil, err
	}
	result.Site = nil
	return result, nil
}

// SyncCalendar replays the calendar mirror for one site, deleted sites included.
func (s *service) SyncCalendar(ctx context.Context, id uuid.UUID) error {
	site, err := s.repo.FindAny(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return siteNotFound(id)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load site")
	}
	return s.syncCalendar(ctx, site)
}

// ResyncFailed retries the calendar mirror for up to limit sites whose last sync failed.
func (s *service) ResyncFailed(ctx context.Context, limit int) (ResyncReport, error) {
	if limit <= 0 {
		limit = defaultResyncBatch
	}
	var report ResyncReport
	ids, err := s.repo.ListSyncCandidates(ctx, limit)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list calendar sync candidates")
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++
		if err := s.SyncCalendar(ctx, id); err != nil {
			report.Failed++
			continue
		}
		report.Synced++
	}
	return report, nil
}

func (s *service) lockLive(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Site, error) {
	site, err := repo.LockForUpdate(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, siteNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock site")
	}
	if site.IsDeleted() || site.ReleasedAt != nil {
		return nil, siteNotFound(id)
	}
	return site, nil
}

// buildSet validates the requested lines inside tx. Any failing line aborts the save; the
// error lists every failing line.
func (s *service) buildSet(ctx context.Context, tx *gorm.DB, credit map[int64]int, input SiteInput) (*allocation.Set, error) {
	builder, err := allocation.NewBuilder(s.catalog.WithTx(tx))
	if err != nil {
		return nil, err
	}
	set := allocation.NewSet(credit)
	lineErrs, err := builder.Build(ctx, set, input.Lines, input.Input)
	if err != nil {
		return nil, err
	}
	if len(lineErrs) > 0 {
		return nil, pkgerrors.LineRejection(lineErrs)
	}
	return set, nil
}

// finish mirrors the committed site and builds the response. Mirror failures become warnings.
func (s *service) finish(ctx context.Context, id uuid.UUID, clientID string) (*SaveResult, error) {
	site, err := s.repo.FindAny(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload site")
	}
	result := &SaveResult{ClientID: clientID, Warnings: []Warning{}}
	if err := s.syncCalendar(context.WithoutCancel(ctx), site); err != nil {
		result.Warnings = append(result.Warnings, mirrorWarning(err))
	}
	result.Site = NewSiteDTO(site)
	return result, nil
}

// syncCalendar brings the remote event in line with the site: mirrored statuses get an
// event, everything else (drafts, cancelled and deleted sites) has its event removed.
func (s *service) syncCalendar(ctx context.Context, site *models.Site) error {
	state, mirrorErr := s.pushCalendar(ctx, site)
	if mirrorErr != nil {
		msg := mirrorErr.Error()
		state.Status = enums.CalendarSyncStatusFailed
		state.Error = &msg
		s.logg.Warn(s.logg.WithFields(s.logg.WithSiteID(ctx, site.ID.String()), map[string]any{"error": msg}),
			"calendar mirror failed; site left for resync")
	} else if state.Status == enums.CalendarSyncStatusSynced {
		now := time.Now().UTC()
		state.SyncedAt = &now
	}

	if err := s.repo.UpdateSyncState(ctx, site.ID, state); err != nil {
		s.logg.Error(s.logg.WithSiteID(ctx, site.ID.String()), "failed to store calendar sync state", err)
	}
	site.CalendarSyncStatus = state.Status
	site.CalendarSyncError = state.Error
	if state.SyncedAt != nil {
		site.CalendarSyncedAt = state.SyncedAt
	}
	return mirrorErr
}

// pushCalendar applies the mirror policy to site and keeps site.CalendarEventID in step
// with what was stored.
func (s *service) pushCalendar(ctx context.Context, site *models.Site) (SyncState, error) {
	wanted := !site.IsDeleted() && site.Status.Mirrored()
	switch {
	case wanted && site.CalendarEventID == nil:
		return s.createEvent(ctx, site)
	case wanted:
		err := s.mirror.Update(ctx, *site.CalendarEventID, summaryFor(site))
		if errors.Is(err, calendar.ErrEventGone) {
			logCtx := s.logg.WithFields(s.logg.WithSiteID(ctx, site.ID.String()), map[string]any{"event_id": *site.CalendarEventID})
			s.logg.Warn(logCtx, "calendar event missing remotely; recreating")
			if _, err := s.repo.SwapEventID(ctx, site.ID, site.CalendarEventID, nil); err != nil {
				return SyncState{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear calendar event id")
			}
			site.CalendarEventID = nil
			return s.createEvent(ctx, site)
		}
		if err != nil {
			return SyncState{}, err
		}
		return SyncState{Status: enums.CalendarSyncStatusSynced}, nil
	case site.CalendarEventID != nil:
		if err := s.mirror.Delete(ctx, *site.CalendarEventID); err != nil {
			return SyncState{}, err
		}
		if _, err := s.repo.SwapEventID(ctx, site.ID, site.CalendarEventID, nil); err != nil {
			return SyncState{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear calendar event id")
		}
		site.CalendarEventID = nil
		return SyncState{Status: enums.CalendarSyncStatusSynced}, nil
	default:
		return SyncState{Status: enums.CalendarSyncStatusSkipped}, nil
	}
}

// createEvent creates the remote event and attaches it only if no other sync attached one
// first. The losing event is deleted and the winning one updated with this site's data.
func (s *service) createEvent(ctx context.Context, site *models.Site) (SyncState, error) {
	eventID, err := s.mirror.Create(ctx, summaryFor(site))
	if err != nil {
		return SyncState{}, err
	}
	if eventID == "" {
		return SyncState{Status: enums.CalendarSyncStatusSkipped}, nil
	}

	claimed, err := s.repo.SwapEventID(ctx, site.ID, nil, &eventID)
	if err == nil && claimed {
		site.CalendarEventID = &eventID
		return SyncState{Status: enums.CalendarSyncStatusSynced}, nil
	}

	logCtx := s.logg.WithFields(s.logg.WithSiteID(ctx, site.ID.String()), map[string]any{"event_id": eventID})
	if delErr := s.mirror.Delete(ctx, eventID); delErr != nil {
		s.logg.Error(logCtx, "failed to delete duplicate calendar event", delErr)
	}
	if err != nil {
		return SyncState{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store calendar event id")
	}
	s.logg.Info(logCtx, "calendar event attached concurrently; duplicate removed")

	current, err := s.repo.FindAny(ctx, site.ID)
	if err != nil {
		return SyncState{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload site")
	}
	site.CalendarEventID = current.CalendarEventID
	if current.CalendarEventID == nil {
		return SyncState{}, pkgerrors.New(pkgerrors.CodeDependency, "calendar event id changed during sync")
	}
	if err := s.mirror.Update(ctx, *current.CalendarEventID, summaryFor(current)); err != nil {
		return SyncState{}, err
	}
	return SyncState{Status: enums.CalendarSyncStatusSynced}, nil
}

func (s *service) logCommitted(ctx context.Context, op string, siteID uuid.UUID, lines []inventory.Line) {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.EquipmentID)
	}
	logCtx := s.logg.WithFields(s.logg.WithSiteID(ctx, siteID.String()), map[string]any{
		"op":            op,
		"equipment_ids": ids,
	})
	s.logg.Info(logCtx, "site allocation committed")
}

func normalizeInput(input SiteInput) (SiteInput, error) {
	out := input
	out.Name = strings.TrimSpace(input.Name)
	if out.Name == "" {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "start_date and end_date are required")
	}
	out.StartDate = dateOnly(input.StartDate)
	out.EndDate = dateOnly(input.EndDate)
	if out.EndDate.Before(out.StartDate) {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date")
	}
	if out.Status == "" {
		out.Status = enums.SiteStatusDraft
	}
	if !out.Status.IsValid() {
		return out, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", out.Status))
	}
	if out.Priority == "" {
		out.Priority = enums.SitePriorityMedium
	}
	if !out.Priority.IsValid() {
		return out, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", out.Priority))
	}
	if out.Budget.Valid && out.Budget.Decimal.IsNegative() {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "budget must be >= 0")
	}
	return out, nil
}

func applyFields(site *models.Site, in SiteInput) {
	site.Name = in.Name
	site.StartDate = in.StartDate
	site.EndDate = in.EndDate
	site.Location = in.Location
	site.Client = in.Client
	site.Description = in.Description
	site.Notes = in.Notes
	site.Status = in.Status
	site.Priority = in.Priority
	site.Budget = in.Budget
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func allocationRows(set *allocation.Set) []models.SiteAllocation {
	lines := set.Lines()
	rows := make([]models.SiteAllocation, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, models.SiteAllocation{
			EquipmentID:   line.EquipmentID,
			EquipmentName: line.Name,
			Quantity:      line.Quantity,
			Notes:         line.Notes,
		})
	}
	return rows
}

func committedLines(rows []models.SiteAllocation) []inventory.Line {
	out := make([]inventory.Line, 0, len(rows))
	for _, row := range rows {
		out = append(out, inventory.Line{EquipmentID: row.EquipmentID, Quantity: row.Quantity})
	}
	return out
}

func creditOf(rows []models.SiteAllocation) map[int64]int {
	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.EquipmentID] += row.Quantity
	}
	return out
}

func mirrorWarning(err error) Warning {
	w := Warning{Code: pkgerrors.CodeDependency, Message: "calendar sync failed: " + err.Error()}
	if typed := pkgerrors.As(err); typed != nil {
		w.Code = typed.Code()
		w.Details = typed.Details()
	}
	return w
}

func siteNotFound(id uuid.UUID) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("site %s not found", id))
}

func wrapErr(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
