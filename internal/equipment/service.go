package equipment

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/gearstage-backend/pkg/db"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	createIDAttempts     = 3
	defaultMovementLimit = 50
	maxMovementLimit     = 500
)

// Service exposes catalog management operations.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]EquipmentDTO, error)
	Get(ctx context.Context, id int64) (*EquipmentDTO, error)
	Create(ctx context.Context, input CreateInput) (*EquipmentDTO, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*EquipmentDTO, error)
	Delete(ctx context.Context, id int64) error
	CorrectStock(ctx context.Context, id int64, input CorrectStockInput) (*EquipmentDTO, error)
	ListMovements(ctx context.Context, id int64, limit int) ([]MovementDTO, error)
}

// CreateInput holds the validated payload to register equipment.
type CreateInput struct {
	Name        string
	Stock       int
	Description *string
	Status      enums.EquipmentStatus
	Location    *string
	CategoryIDs []uuid.UUID
}

// UpdateInput holds optional metadata changes. Stock is changed only through the ledger
// or CorrectStock.
type UpdateInput struct {
	Name        *string
	Description *string
	Status      *enums.EquipmentStatus
	Location    *string
	CategoryIDs *[]uuid.UUID
}

// CorrectStockInput overrides the stock count of one item.
type CorrectStockInput struct {
	Stock  int
	Reason string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]EquipmentDTO, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list equipment")
	}
	out := make([]EquipmentDTO, 0, len(items))
	for i := range items {
		out = append(out, *NewEquipmentDTO(&items[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (*EquipmentDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err, "load equipment")
	}
	return NewEquipmentDTO(item), nil
}

// Create assigns the next free id and inserts the item. A concurrent create that claims the
// same id surfaces as a unique violation and is retried with a fresh id.
func (s *service) Create(ctx context.Context, input CreateInput) (*EquipmentDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}
	status := input.Status
	if status == "" {
		status = enums.EquipmentStatusAvailable
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	categoryIDs := uniqueIDs(input.CategoryIDs)

	var createdID int64
	var lastErr error
	for attempt := 0; attempt < createIDAttempts; attempt++ {
		lastErr = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if err := ensureCategories(ctx, txRepo, categoryIDs); err != nil {
				return err
			}
			id, err := txRepo.NextFreeID(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate equipment id")
			}
			item := &models.Equipment{
				ID:          id,
				Name:        name,
				Stock:       input.Stock,
				Description: input.Description,
				Status:      status,
				Location:    input.Location,
			}
			if err := txRepo.Create(ctx, item, categoryIDs); err != nil {
				return err
			}
			if input.Stock > 0 {
				reason := "initial stock"
				if err := txRepo.RecordMovement(ctx, &models.StockMovement{
					EquipmentID: id,
					Kind:        enums.StockMovementKindCorrection,
					Delta:       input.Stock,
					StockAfter:  input.Stock,
					Reason:      &reason,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record initial stock")
				}
			}
			createdID = id
			return nil
		})
		if lastErr == nil || !db.IsUniqueViolation(lastErr, "") {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt+1), "equipment id collision, retrying")
	}
	if lastErr != nil {
		if db.IsUniqueViolation(lastErr, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a free equipment id")
		}
		return nil, wrapRepoErr(lastErr, "create equipment")
	}

	s.logg.Info(s.logg.WithField(ctx, "equipment_id", createdID), "equipment created")
	return s.Get(ctx, createdID)
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInput) (*EquipmentDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *input.Status))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		item, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			item.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			item.Description = input.Description
		}
		if input.Status != nil {
			item.Status = *input.Status
		}
		if input.Location != nil {
			item.Location = input.Location
		}
		if err := txRepo.Update(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update equipment")
		}
		if input.CategoryIDs != nil {
			ids := uniqueIDs(*input.CategoryIDs)
			if err := ensureCategories(ctx, txRepo, ids); err != nil {
				return err
			}
			if err := txRepo.ReplaceCategories(ctx, id, ids); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace categories")
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapRepoErr(err, "update equipment")
	}
	return s.Get(ctx, id)
}

// Delete removes the item. Sites that still reference it keep their allocation rows.
func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	}); err != nil {
		return wrapRepoErr(err, "delete equipment")
	}
	s.logg.Info(s.logg.WithField(ctx, "equipment_id", id), "equipment deleted")
	return nil
}

// CorrectStock sets an absolute stock count outside the ledger and journals the difference.
func (s *service) CorrectStock(ctx context.Context, id int64, input CorrectStockInput) (*EquipmentDTO, error) {
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	var delta int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		locked, err := txRepo.LockForUpdate(ctx, []int64{id})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock equipment")
		}
		item, ok := locked[id]
		if !ok {
			return NotFoundError(id)
		}
		delta = input.Stock - item.Stock
		if delta == 0 {
			return nil
		}
		after, err := txRepo.ApplyDelta(ctx, id, delta)
		if err != nil {
			return err
		}
		return txRepo.RecordMovement(ctx, &models.StockMovement{
			EquipmentID: id,
			Kind:        enums.StockMovementKindCorrection,
			Delta:       delta,
			StockAfter:  after,
			Reason:      &reason,
		})
	})
	if err != nil {
		return nil, wrapRepoErr(err, "correct stock")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"equipment_id": id, "delta": delta, "reason": reason})
	s.logg.Warn(logCtx, "stock corrected outside ledger")
	return s.Get(ctx, id)
}

func (s *service) ListMovements(ctx context.Context, id int64, limit int) ([]MovementDTO, error) {
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	if limit > maxMovementLimit {
		limit = maxMovementLimit
	}
	if _, err := s.repo.GetStock(ctx, id); err != nil {
		return nil, wrapRepoErr(err, "load equipment")
	}
	rows, err := s.repo.ListMovements(ctx, id, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	out := make([]MovementDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newMovementDTO(row))
	}
	return out, nil
}

func ensureCategories(ctx context.Context, repo *Repository, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	count, err := repo.CountCategories(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load categories")
	}
	if int(count) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func wrapRepoErr(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
