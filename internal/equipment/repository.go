package equipment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const joinTable = "equipment_categories"

// ListFilter narrows catalog listings.
type ListFilter struct {
	CategoryID *uuid.UUID
}

// Repository persists equipment rows, category membership and the stock journal.
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

// FindByID loads an equipment row with its categories.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Equipment, error) {
	var item models.Equipment
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, name ASC") }).
		First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError(id)
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDs loads the requested rows keyed by id; unknown ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Equipment, error) {
	out := make(map[int64]models.Equipment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Equipment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// List returns the catalog ordered by id.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Equipment, error) {
	q := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, name ASC") }).
		Order("id ASC")
	if filter.CategoryID != nil {
		q = q.Where("id IN (?)", r.db.Table(joinTable).Select("equipment_id").Where("category_id = ?", *filter.CategoryID))
	}
	var items []models.Equipment
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetStock returns the live free count for id.
func (r *Repository) GetStock(ctx context.Context, id int64) (int, error) {
	var stocks []int
	if err := r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ?", id).
		Pluck("stock", &stocks).Error; err != nil {
		return 0, err
	}
	if len(stocks) == 0 {
		return 0, NotFoundError(id)
	}
	return stocks[0], nil
}

// LockForUpdate row-locks the requested ids in ascending order and returns the locked rows.
// Callers must check the map for unknown ids.
func (r *Repository) LockForUpdate(ctx context.Context, ids []int64) (map[int64]models.Equipment, error) {
	out := make(map[int64]models.Equipment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.Equipment
	if err := r.lockQuery(ctx, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// lockQuery selects ids FOR UPDATE, deduplicated and sorted so concurrent lockers always
// acquire rows in the same order. SQLite drops the locking clause.
func (r *Repository) lockQuery(ctx context.Context, ids []int64) *gorm.DB {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	return r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id IN ?", ordered).
		Order("id ASC")
}

// ApplyDelta adds delta to the stock of id and returns the new stock. The update is guarded
// so stock never drops below zero.
func (r *Repository) ApplyDelta(ctx context.Context, id int64, delta int) (int, error) {
	tx := r.db.WithContext(ctx)
	res := tx.Model(&models.Equipment{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var item models.Equipment
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, NotFoundError(id)
			}
			return 0, err
		}
		return 0, InsufficientStockError(item, -delta, item.Stock)
	}
	return r.GetStock(ctx, id)
}

// NextFreeID returns the lowest unused positive id below the current maximum, else max+1.
func (r *Repository) NextFreeID(ctx context.Context) (int64, error) {
	tx := r.db.WithContext(ctx)

	var first int64
	if err := tx.Model(&models.Equipment{}).Where("id = 1").Count(&first).Error; err != nil {
		return 0, err
	}
	if first == 0 {
		return 1, nil
	}

	var next int64
	err := tx.Raw(`
SELECT MIN(e.id) + 1
FROM equipment e
WHERE NOT EXISTS (SELECT 1 FROM equipment n WHERE n.id = e.id + 1)`).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Create inserts item and its category links.
func (r *Repository) Create(ctx context.Context, item *models.Equipment, categoryIDs []uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Omit("Categories").Create(item).Error; err != nil {
		return err
	}
	return r.linkCategories(ctx, item.ID, categoryIDs)
}

// Update saves the mutable columns of item.
func (r *Repository) Update(ctx context.Context, item *models.Equipment) error {
	return r.db.WithContext(ctx).
		Model(&models.Equipment{ID: item.ID}).
		Select("name", "description", "status", "location", "updated_at").
		Updates(item).Error
}

// ReplaceCategories swaps the category links of id.
func (r *Repository) ReplaceCategories(ctx context.Context, id int64, categoryIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Exec("DELETE FROM "+joinTable+" WHERE equipment_id = ?", id).Error; err != nil {
		return err
	}
	return r.linkCategories(ctx, id, categoryIDs)
}

func (r *Repository) linkCategories(ctx context.Context, id int64, categoryIDs []uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	for _, cid := range categoryIDs {
		if err := tx.Exec("INSERT INTO "+joinTable+" (equipment_id, category_id) VALUES (?, ?)", id, cid).Error; err != nil {
			return fmt.Errorf("link category %s: %w", cid, err)
		}
	}
	return nil
}

// CountCategories returns how many of ids exist.
func (r *Repository) CountCategories(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// Delete removes the equipment row, its category links and its journal. Ids are recycled,
// so journal rows must not outlive the item.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Exec("DELETE FROM "+joinTable+" WHERE equipment_id = ?", id).Error; err != nil {
		return err
	}
	if err := tx.Where("equipment_id = ?", id).Delete(&models.StockMovement{}).Error; err != nil {
		return err
	}
	res := tx.Delete(&models.Equipment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFoundError(id)
	}
	return nil
}

// RecordMovement appends a row to the stock journal.
func (r *Repository) RecordMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "movement is required")
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListMovements returns the newest journal rows for id.
func (r *Repository) ListMovements(ctx context.Context, id int64, limit int) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("equipment_id = ?", id).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
