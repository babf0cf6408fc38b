package categories

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/gearstage-backend/pkg/db"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultColor = "#7b1fa2"

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CategoryDTO is the category payload returned to clients.
type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput registers a category; a nil Position appends it.
type CreateInput struct {
	Name     string
	Color    string
	Position *int
}

// UpdateInput holds optional category changes.
type UpdateInput struct {
	Name     *string
	Color    *string
	Position *int
}

// Service manages equipment categories.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Create(ctx context.Context, input CreateInput) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a category service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = defaultColor
	}
	if !colorRe.MatchString(color) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "color must be a #rrggbb hex value")
	}

	row := &models.Category{Name: name, Color: color}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if input.Position != nil {
			row.Position = *input.Position
		} else {
			pos, err := txRepo.NextPosition(ctx)
			if err != nil {
				return err
			}
			row.Position = pos
		}
		return txRepo.Create(ctx, row)
	})
	if err != nil {
		return nil, mapErr(err, "create category")
	}
	dto := toDTO(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CategoryDTO, error) {
	var row *models.Category
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		found, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			found.Name = name
		}
		if input.Color != nil {
			if !colorRe.MatchString(*input.Color) {
				return pkgerrors.New(pkgerrors.CodeValidation, "color must be a #rrggbb hex value")
			}
			found.Color = *input.Color
		}
		if input.Position != nil {
			found.Position = *input.Position
		}
		row = found
		return txRepo.Update(ctx, found)
	})
	if err != nil {
		return nil, mapErr(err, "update category")
	}
	dto := toDTO(row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return mapErr(err, "delete category")
	}
	return nil
}

func mapErr(err error, msg string) error {
	switch {
	case pkgerrors.As(err) != nil:
		return err
	case isNotFound(err):
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category name already exists")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
}

func toDTO(row *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:        row.ID,
		Name:      row.Name,
		Color:     row.Color,
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
