package allocation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CommittedReader returns the quantities a saved site currently reserves.
type CommittedReader interface {
	CommittedQuantities(ctx context.Context, siteID uuid.UUID) (map[int64]int, error)
}

// PreviewInput is a draft allocation: existing structured lines plus optional shorthand.
type PreviewInput struct {
	SiteID *uuid.UUID
	Lines  []Entry
	Input  string
}

// PreviewResult is the validated draft and every per-entry failure.
type PreviewResult struct {
	Lines  []Line
	Errors []error
}

// Previewer runs the pre-flight checks used while a site is being edited.
type Previewer struct {
	builder   *Builder
	committed CommittedReader
}

// NewPreviewer constructs a previewer.
func NewPreviewer(builder *Builder, committed CommittedReader) (*Previewer, error) {
	if builder == nil {
		return nil, fmt.Errorf("allocation builder required")
	}
	if committed == nil {
		return nil, fmt.Errorf("committed allocation reader required")
	}
	return &Previewer{builder: builder, committed: committed}, nil
}

// Preview validates input without touching stock.
func (p *Previewer) Preview(ctx context.Context, input PreviewInput) (*PreviewResult, error) {
	var credit map[int64]int
	if input.SiteID != nil {
		c, err := p.committed.CommittedQuantities(ctx, *input.SiteID)
		if err != nil {
			return nil, err
		}
		credit = c
	}
	set := NewSet(credit)

	errs, err := p.builder.Build(ctx, set, input.Lines, input.Input)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Lines: set.Lines(), Errors: errs}, nil
}
