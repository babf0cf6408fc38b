package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger operation names used in logs and metrics.
const (
	OpReserve   = "reserve"
	OpRelease   = "release"
	OpReconcile = "reconcile"
)

// Line is one (equipment, quantity) pair handed to the ledger.
type Line struct {
	EquipmentID int64
	Quantity    int
}

// Ledger applies stock deltas for site allocations. Every operation runs inside the
// caller's transaction and either applies all of its deltas or none.
type Ledger struct {
	catalog *equipment.Repository
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewLedger wires the ledger to the equipment catalog.
func NewLedger(catalog *equipment.Repository, m *metrics.LedgerMetrics, logg *logger.Logger) (*Ledger, error) {
	if catalog == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Ledger{catalog: catalog, metrics: m, logg: logg}, nil
}

// Reserve takes quantity units of every line out of stock. It fails with NotFound for the
// first unknown id, then with InsufficientStock for the first line stock cannot cover.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, siteID uuid.UUID, lines []Line) (err error) {
	defer l.observe(ctx, OpReserve, siteID, time.Now(), &err)

	if err := validateLines(lines); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	repo := l.catalog.WithTx(tx)
	locked, err := repo.LockForUpdate(ctx, lineIDs(lines))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock equipment")
	}
	if err := requireKnown(lineIDs(lines), locked); err != nil {
		return err
	}
	for _, line := range lines {
		item := locked[line.EquipmentID]
		if line.Quantity > item.Stock {
			return equipment.InsufficientStockError(item, line.Quantity, item.Stock)
		}
	}
	for _, line := range lines {
		if err := l.apply(ctx, repo, siteID, line.EquipmentID, -line.Quantity, enums.StockMovementKindReserve); err != nil {
			return err
		}
	}
	return nil
}

// Release returns every line to stock. It has no ceiling and is not idempotent; callers
// must release a given allocation at most once.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, siteID uuid.UUID, lines []Line) (err error) {
	defer l.observe(ctx, OpRelease, siteID, time.Now(), &err)

	if err := validateLines(lines); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	repo := l.catalog.WithTx(tx)
	locked, err := repo.LockForUpdate(ctx, lineIDs(lines))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock equipment")
	}
	if err := requireKnown(lineIDs(lines), locked); err != nil {
		return err
	}
	for _, line := range lines {
		if err := l.apply(ctx, repo, siteID, line.EquipmentID, line.Quantity, enums.StockMovementKindRelease); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile moves stock from the previous allocation to the next one by applying only
// the net delta per equipment. Equipment whose quantity is unchanged is not touched.
func (l *Ledger) Reconcile(ctx context.Context, tx *gorm.DB, siteID uuid.UUID, previous, next []Line) (err error) {
	defer l.observe(ctx, OpReconcile, siteID, time.Now(), &err)

	if err := validateLines(previous); err != nil {
		return err
	}
	if err := validateLines(next); err != nil {
		return err
	}

	deltas := NetDeltas(previous, next)
	if len(deltas) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.EquipmentID)
	}

	repo := l.catalog.WithTx(tx)
	locked, err := repo.LockForUpdate(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock equipment")
	}
	if err := requireKnown(ids, locked); err != nil {
		return err
	}
	for _, d := range deltas {
		if d.Delta >= 0 {
			continue
		}
		item := locked[d.EquipmentID]
		if item.Stock < -d.Delta {
			return equipment.InsufficientStockError(item, -d.Delta, item.Stock)
		}
	}
	for _, d := range deltas {
		if err := l.apply(ctx, repo, siteID, d.EquipmentID, d.Delta, enums.StockMovementKindReconcile); err != nil {
			return err
		}
	}
	return nil
}

// Delta is the net stock change for one equipment; positive values return stock.
type Delta struct {
	EquipmentID int64
	Delta       int
}

// NetDeltas computes previous minus next per equipment, dropping zero deltas. The result
// is ordered by first appearance across next, then previous.
func NetDeltas(previous, next []Line) []Delta {
	order := make([]int64, 0, len(previous)+len(next))
	net := make(map[int64]int, len(previous)+len(next))
	for _, line := range next {
		if _, seen := net[line.EquipmentID]; !seen {
			order = append(order, line.EquipmentID)
		}
		net[line.EquipmentID] -= line.Quantity
	}
	for _, line := range previous {
		if _, seen := net[line.EquipmentID]; !seen {
			order = append(order, line.EquipmentID)
		}
		net[line.EquipmentID] += line.Quantity
	}
	out := make([]Delta, 0, len(order))
	for _, id := range order {
		if net[id] == 0 {
			continue
		}
		out = append(out, Delta{EquipmentID: id, Delta: net[id]})
	}
	return out
}

func (l *Ledger) apply(ctx context.Context, repo *equipment.Repository, siteID uuid.UUID, id int64, delta int, kind enums.StockMovementKind) error {
	after, err := repo.ApplyDelta(ctx, id, delta)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock delta")
	}
	site := siteID
	if err := repo.RecordMovement(ctx, &models.StockMovement{
		EquipmentID: id,
		SiteID:      &site,
		Kind:        kind,
		Delta:       delta,
		StockAfter:  after,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}
	l.metrics.AddUnits(delta)
	return nil
}

func (l *Ledger) observe(ctx context.Context, op string, siteID uuid.UUID, started time.Time, errp *error) {
	outcome := metrics.OutcomeOK
	if err := *errp; err != nil {
		switch {
		case pkgerrors.Is(err, pkgerrors.CodeInsufficientStock):
			outcome = metrics.OutcomeInsufficientStock
		case pkgerrors.Is(err, pkgerrors.CodeNotFound):
			outcome = metrics.OutcomeNotFound
		default:
			outcome = metrics.OutcomeError
		}
	}
	l.metrics.Observe(op, outcome, time.Since(started))

	if outcome != metrics.OutcomeOK {
		logCtx := l.logg.WithFields(l.logg.WithSiteID(ctx, siteID.String()), map[string]any{"op": op, "outcome": outcome})
		l.logg.Debug(logCtx, "ledger operation rejected")
	}
}

func validateLines(lines []Line) error {
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for equipment #%d must be positive", line.EquipmentID)).
				WithDetails(map[string]any{"equipment_id": line.EquipmentID, "quantity": line.Quantity})
		}
		if _, dup := seen[line.EquipmentID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("equipment #%d listed more than once", line.EquipmentID)).
				WithDetails(map[string]any{"equipment_id": line.EquipmentID})
		}
		seen[line.EquipmentID] = struct{}{}
	}
	return nil
}

func requireKnown(ids []int64, locked map[int64]models.Equipment) error {
	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return equipment.NotFoundError(id)
		}
	}
	return nil
}

func lineIDs(lines []Line) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.EquipmentID)
	}
	return ids
}
