package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the all-day date format used by the calendar API.
const DateLayout = "2006-01-02"

// Summary is the site data mirrored onto the shared calendar.
type Summary struct {
	SiteID      uuid.UUID
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Location    *string
	Client      *string
	Description *string
	Notes       *string
}

// ErrEventGone is returned by Update when the remote event no longer exists, typically
// because it was deleted directly in the calendar.
var ErrEventGone = errors.New("calendar event no longer exists")

// Mirror keeps an external calendar event per site. Create returns the opaque event id;
// an empty id with a nil error means nothing was mirrored.
type Mirror interface {
	Create(ctx context.Context, summary Summary) (string, error)
	Update(ctx context.Context, externalID string, summary Summary) error
	Delete(ctx context.Context, externalID string) error
}

// Noop is the mirror used when calendar sync is disabled.
type Noop struct{}

func (Noop) Create(context.Context, Summary) (string, error) { return "", nil }
func (Noop) Update(context.Context, string, Summary) error   { return nil }
func (Noop) Delete(context.Context, string) error            { return nil }
