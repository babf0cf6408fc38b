package sites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows site listings. From/To select sites whose date range overlaps the window.
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Status *enums.SiteStatus
}

// SyncState is the calendar mirror outcome stored on a site. A nil SyncedAt keeps the
// previous value. The event id is moved separately with SwapEventID.
type SyncState struct {
	Status   enums.CalendarSyncStatus
	Error    *string
	SyncedAt *time.Time
}

// Repository persists sites and their committed allocation.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func preloadAllocations(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID loads a live site with its committed allocation.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Site, error) {
	var site models.Site
	err := r.db.WithContext(ctx).
		Preload("Allocations", preloadAllocations).
		Where("deleted_at IS NULL").
		First(&site, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// FindAny loads a site whether or not it was deleted.
func (r *Repository) FindAny(ctx context.Context, id uuid.UUID) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).
		Preload("Allocations", preloadAllocations).
		First(&site, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// LockForUpdate row-locks the site and loads its committed allocation.
func (r *Repository) LockForUpdate(ctx context.Context, id uuid.UUID) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&site, "id = ?", id).Error; err != nil {
		return nil, err
	}
	allocations, err := r.ListAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	site.Allocations = allocations
	return &site, nil
}

// ListAllocations returns the committed allocation rows of a site in input order.
func (r *Repository) ListAllocations(ctx context.Context, siteID uuid.UUID) ([]models.SiteAllocation, error) {
	var rows []models.SiteAllocation
	if err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns live sites ordered by start date.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Site, error) {
	q := r.db.WithContext(ctx).
		Preload("Allocations", preloadAllocations).
		Where("deleted_at IS NULL").
		Order("start_date ASC, name ASC")
	if filter.From != nil {
		q = q.Where("end_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("start_date <= ?", *filter.To)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var rows []models.Site
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts the site row only; allocations are written with ReplaceAllocations.
func (r *Repository) Create(ctx context.Context, site *models.Site) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(site).Error
}

// Update writes the editable site columns.
func (r *Repository) Update(ctx context.Context, site *models.Site) error {
	return r.db.WithContext(ctx).
		Model(site).
		Omit(clause.Associations).
		Select("name", "start_date", "end_date", "location", "client", "description",
			"notes", "status", "priority", "budget", "updated_at").
		Updates(site).Error
}

// UpdateStatus changes the status label only.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SiteStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Site{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

// ReplaceAllocations swaps the committed allocation of a site for rows.
func (r *Repository) ReplaceAllocations(ctx context.Context, siteID uuid.UUID, rows []models.SiteAllocation) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("site_id = ?", siteID).Delete(&models.SiteAllocation{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].SiteID = siteID
		rows[i].Position = i
	}
	return db.Create(&rows).Error
}

// MarkReleased soft-deletes the site and records that its allocation went back to stock.
func (r *Repository) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Site{}).
		Where("id = ? AND released_at IS NULL", id).
		Updates(map[string]any{"deleted_at": at, "released_at": at, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CommittedQuantities returns the quantities a live site reserves, keyed by equipment id.
func (r *Repository) CommittedQuantities(ctx context.Context, siteID uuid.UUID) (map[int64]int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Site{}).
		Where("id = ? AND deleted_at IS NULL", siteID).
		Count(&count).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load site")
	}
	if count == 0 {
		return nil, siteNotFound(siteID)
	}
	rows, err := r.ListAllocations(ctx, siteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load site allocation")
	}
	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.EquipmentID] += row.Quantity
	}
	return out, nil
}

// ListSyncCandidates returns up to limit sites, deleted ones included, whose last mirror
// attempt failed, oldest first.
func (r *Repository) ListSyncCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Site{}).
		Where("calendar_sync_status = ?", enums.CalendarSyncStatusFailed).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateSyncState stores the mirror outcome. Bumping updated_at rotates failing sites to the
// back of the resync queue.
func (r *Repository) UpdateSyncState(ctx context.Context, id uuid.UUID, state SyncState) error {
	columns := map[string]any{
		"calendar_sync_status": state.Status,
		"calendar_sync_error":  state.Error,
		"updated_at":           time.Now().UTC(),
	}
	if state.SyncedAt != nil {
		columns["calendar_synced_at"] = *state.SyncedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Site{}).
		Where("id = ?", id).
		UpdateColumns(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("site %s not found", id)
	}
	return nil
}

// SwapEventID sets the calendar event id to `to` only while the stored id still equals
// `from` (nil meaning no event). It reports whether the row was changed.
func (r *Repository) SwapEventID(ctx context.Context, id uuid.UUID, from, to *string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Site{}).Where("id = ?", id)
	if from == nil {
		q = q.Where("calendar_event_id IS NULL")
	} else {
		q = q.Where("calendar_event_id = ?", *from)
	}
	res := q.UpdateColumn("calendar_event_id", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
