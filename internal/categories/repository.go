package categories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists equipment categories.
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

// List returns categories in display order.
func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).Order("position ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a category; it returns gorm.ErrRecordNotFound when missing.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var row models.Category
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// NextPosition returns one past the highest position in use.
func (r *Repository) NextPosition(ctx context.Context) (int, error) {
	var maxPos sql.NullInt64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Select("MAX(position)").Row().Scan(&maxPos); err != nil {
		return 0, err
	}
	if !maxPos.Valid {
		return 1, nil
	}
	return int(maxPos.Int64) + 1, nil
}

func (r *Repository) Create(ctx context.Context, row *models.Category) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Update(ctx context.Context, row *models.Category) error {
	return r.db.WithContext(ctx).
		Model(&models.Category{ID: row.ID}).
		Select("name", "color", "position", "updated_at").
		Updates(row).Error
}

// Delete removes the category and its equipment links.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Exec("DELETE FROM equipment_categories WHERE category_id = ?", id).Error; err != nil {
		return err
	}
	res := tx.Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
