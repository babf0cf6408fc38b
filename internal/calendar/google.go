package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/gearstage-backend/pkg/config"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultRequestTimeout = 10 * time.Second

// eventsAPI is the slice of the Calendar events resource the mirror uses.
type eventsAPI interface {
	Insert(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error)
	Update(ctx context.Context, calendarID, eventID string, event *gcal.Event) error
	Delete(ctx context.Context, calendarID, eventID string) error
}

type serviceEvents struct {
	svc *gcal.Service
}

func (s serviceEvents) Insert(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error) {
	return s.svc.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (s serviceEvents) Update(ctx context.Context, calendarID, eventID string, event *gcal.Event) error {
	_, err := s.svc.Events.Update(calendarID, eventID, event).Context(ctx).Do()
	return err
}

func (s serviceEvents) Delete(ctx context.Context, calendarID, eventID string) error {
	return s.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
}

// GoogleMirror writes sites as all-day events on a Google Calendar.
type GoogleMirror struct {
	events      eventsAPI
	calendarID  string
	siteURLBase string
	timeout     time.Duration
}

// NewGoogleMirror builds a mirror authenticated with service-account credentials.
func NewGoogleMirror(ctx context.Context, cfg config.CalendarConfig, logg *logger.Logger) (*GoogleMirror, error) {
	calendarID := strings.TrimSpace(cfg.CalendarID)
	if calendarID == "" {
		return nil, errors.New("calendar id is required")
	}
	if strings.TrimSpace(cfg.CredentialsJSON) == "" {
		return nil, errors.New("calendar credentials are required")
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "calendar_id", calendarID), "google calendar mirror initialized")
	}
	return newGoogleMirror(serviceEvents{svc: svc}, calendarID, cfg.SiteURLBase, cfg.RequestTimeout), nil
}

func newGoogleMirror(events eventsAPI, calendarID, siteURLBase string, timeout time.Duration) *GoogleMirror {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &GoogleMirror{
		events:      events,
		calendarID:  calendarID,
		siteURLBase: strings.TrimRight(siteURLBase, "/"),
		timeout:     timeout,
	}
}

func (m *GoogleMirror) Create(ctx context.Context, summary Summary) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	created, err := m.events.Insert(ctx, m.calendarID, m.BuildEvent(summary))
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

func (m *GoogleMirror) Update(ctx context.Context, externalID string, summary Summary) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.events.Update(ctx, m.calendarID, externalID, m.BuildEvent(summary)); err != nil {
		if isGone(err) {
			return fmt.Errorf("update event %s: %w", externalID, ErrEventGone)
		}
		return fmt.Errorf("update event %s: %w", externalID, err)
	}
	return nil
}

// Delete removes the event; an event that is already gone counts as deleted.
func (m *GoogleMirror) Delete(ctx context.Context, externalID string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.events.Delete(ctx, m.calendarID, externalID); err != nil {
		if isGone(err) {
			return nil
		}
		return fmt.Errorf("delete event %s: %w", externalID, err)
	}
	return nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone)
}

// BuildEvent renders summary as an all-day event. The end date is exclusive.
func (m *GoogleMirror) BuildEvent(summary Summary) *gcal.Event {
	start := summary.StartDate.Format(DateLayout)
	end := summary.EndDate
	if end.Before(summary.StartDate) {
		end = summary.StartDate
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Site: %s\n", summary.Name)
	fmt.Fprintf(&desc, "Start: %s\n", start)
	fmt.Fprintf(&desc, "End: %s\n", end.Format(DateLayout))
	if summary.Client != nil && *summary.Client != "" {
		fmt.Fprintf(&desc, "Client: %s\n", *summary.Client)
	}
	if summary.Notes != nil && *summary.Notes != "" {
		fmt.Fprintf(&desc, "Notes: %s\n", *summary.Notes)
	}
	fmt.Fprintf(&desc, "\nDetails and equipment: %s/%s", m.siteURLBase, summary.SiteID)

	event := &gcal.Event{
		Summary:     "Site: " + summary.Name,
		Description: desc.String(),
		Start:       &gcal.EventDateTime{Date: start},
		End:         &gcal.EventDateTime{Date: end.AddDate(0, 0, 1).Format(DateLayout)},
	}
	if summary.Location != nil {
		event.Location = *summary.Location
	}
	return event
}
