package allocation

import (
	"fmt"

	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/internal/inventory"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
)

// Line is one equipment entry of an allocation set.
type Line struct {
	EquipmentID int64   `json:"equipment_id"`
	Name        string  `json:"equipment_name"`
	Quantity    int     `json:"quantity"`
	Notes       *string `json:"notes,omitempty"`
	Available   int     `json:"available"`
}

// Set is a caller-local, ordered allocation draft with no duplicate equipment. Each line's
// quantity is bounded by the stock seen at validation plus the owning site's credit.
type Set struct {
	lines  []Line
	credit map[int64]int
}

// NewSet returns an empty set. credit holds the quantities the owning site already
// reserves; they count as available when validating that site's own lines.
func NewSet(credit map[int64]int) *Set {
	c := make(map[int64]int, len(credit))
	for id, qty := range credit {
		c[id] = qty
	}
	return &Set{credit: c}
}

// Lines returns a copy of the lines in insertion order.
func (s *Set) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len reports the number of lines.
func (s *Set) Len() int { return len(s.lines) }

// Credit returns the site's own reservation of id.
func (s *Set) Credit(id int64) int { return s.credit[id] }

// Add validates and appends a line for item. Stock is checked before duplicates, so an
// oversized duplicate reports INSUFFICIENT_STOCK.
func (s *Set) Add(item models.Equipment, quantity int, notes *string) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for %s (#%d) must be at least 1", item.Name, item.ID))
	}
	ceiling := item.Stock + s.credit[item.ID]
	if quantity > ceiling {
		return equipment.InsufficientStockError(item, quantity, ceiling)
	}
	if s.index(item.ID) >= 0 {
		return equipment.DuplicateError(item)
	}
	s.lines = append(s.lines, Line{
		EquipmentID: item.ID,
		Name:        item.Name,
		Quantity:    quantity,
		Notes:       notes,
		Available:   ceiling,
	})
	return nil
}

// Remove drops the line for id and reports whether it existed.
func (s *Set) Remove(id int64) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return true
}

// Increment raises the quantity of id by one.
func (s *Set) Increment(id int64) error {
	line, err := s.line(id)
	if err != nil {
		return err
	}
	return s.SetQuantity(id, line.Quantity+1)
}

// Decrement lowers the quantity of id by one, never below 1.
func (s *Set) Decrement(id int64) error {
	line, err := s.line(id)
	if err != nil {
		return err
	}
	return s.SetQuantity(id, line.Quantity-1)
}

// SetQuantity sets the quantity of id within [1, available]. Out-of-range values leave
// the line unchanged.
func (s *Set) SetQuantity(id int64, quantity int) error {
	i := s.index(id)
	if i < 0 {
		return equipment.NotFoundError(id)
	}
	line := s.lines[i]
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for %s (#%d) must be at least 1", line.Name, id))
	}
	if quantity > line.Available {
		return equipment.InsufficientStockError(models.Equipment{ID: id, Name: line.Name}, quantity, line.Available)
	}
	s.lines[i].Quantity = quantity
	return nil
}

// SetNotes replaces the notes of id.
func (s *Set) SetNotes(id int64, notes *string) error {
	i := s.index(id)
	if i < 0 {
		return equipment.NotFoundError(id)
	}
	s.lines[i].Notes = notes
	return nil
}

// LedgerLines converts the set into ledger input.
func (s *Set) LedgerLines() []inventory.Line {
	out := make([]inventory.Line, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, inventory.Line{EquipmentID: line.EquipmentID, Quantity: line.Quantity})
	}
	return out
}

func (s *Set) line(id int64) (Line, error) {
	i := s.index(id)
	if i < 0 {
		return Line{}, equipment.NotFoundError(id)
	}
	return s.lines[i], nil
}

func (s *Set) index(id int64) int {
	for i, line := range s.lines {
		if line.EquipmentID == id {
			return i
		}
	}
	return -1
}
