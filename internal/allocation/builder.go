package allocation

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"go.uber.org/multierr"
)

// Catalog resolves equipment for pre-flight validation.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Equipment, error)
}

// Entry is a structured line request.
type Entry struct {
	EquipmentID int64
	Quantity    int
	Notes       *string
}

// Builder validates entries against the live catalog before they reach the ledger.
type Builder struct {
	catalog Catalog
}

// NewBuilder wires a builder to the catalog.
func NewBuilder(catalog Catalog) (*Builder, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &Builder{catalog: catalog}, nil
}

// AddEntries adds every entry to set. Failures are collected per entry and combined with
// multierr; successful entries are kept.
func (b *Builder) AddEntries(ctx context.Context, set *Set, entries []Entry) error {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.EquipmentID)
	}
	items, err := b.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
	}

	var errs error
	for _, e := range entries {
		item, ok := items[e.EquipmentID]
		if !ok {
			errs = multierr.Append(errs, equipment.NotFoundError(e.EquipmentID))
			continue
		}
		if err := set.Add(item, e.Quantity, e.Notes); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// AddShorthand parses input and adds every valid token to set. Each failing token
// contributes one error; the rest are applied.
func (b *Builder) AddShorthand(ctx context.Context, set *Set, input string) error {
	tokens := Tokenize(input)

	ids := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Err == nil {
			ids = append(ids, tok.EquipmentID)
		}
	}
	items, err := b.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
	}

	var errs error
	for _, tok := range tokens {
		if tok.Err != nil {
			errs = multierr.Append(errs, tok.Err)
			continue
		}
		item, ok := items[tok.EquipmentID]
		if !ok {
			errs = multierr.Append(errs, equipment.NotFoundError(tok.EquipmentID))
			continue
		}
		if err := set.Add(item, tok.Quantity, nil); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Build adds structured entries and then shorthand input to set. It returns every line
// failure in input order; the error result is reserved for catalog failures.
func (b *Builder) Build(ctx context.Context, set *Set, entries []Entry, input string) ([]error, error) {
	var lineErrs []error
	if err := b.AddEntries(ctx, set, entries); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeDependency) {
			return nil, err
		}
		lineErrs = append(lineErrs, Errors(err)...)
	}
	if input != "" {
		if err := b.AddShorthand(ctx, set, input); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeDependency) {
				return nil, err
			}
			lineErrs = append(lineErrs, Errors(err)...)
		}
	}
	return lineErrs, nil
}

// Errors flattens an aggregated builder error.
func Errors(err error) []error {
	return multierr.Errors(err)
}
