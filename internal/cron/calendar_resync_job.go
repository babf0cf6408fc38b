package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gearstage-backend/internal/sites"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
)

// CalendarResyncJobName identifies the job in logs, metrics and lock keys.
const CalendarResyncJobName = "calendar-resync"

const defaultResyncBatchSize = 50

type CalendarResyncJobParams struct {
	Logger    *logger.Logger
	Sites     calendarResyncer
	BatchSize int
}

type calendarResyncer interface {
	ResyncFailed(ctx context.Context, limit int) (sites.ResyncReport, error)
}

// NewCalendarResyncJob builds the job that replays failed calendar mirrors.
func NewCalendarResyncJob(params CalendarResyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sites == nil {
		return nil, fmt.Errorf("site service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultResyncBatchSize
	}
	return &calendarResyncJob{
		logg:  params.Logger,
		sites: params.Sites,
		batch: batch,
	}, nil
}

type calendarResyncJob struct {
	logg  *logger.Logger
	sites calendarResyncer
	batch int
}

func (j *calendarResyncJob) Name() string { return CalendarResyncJobName }

// Run retries one batch. Sites that fail again stay in the queue for the next cycle, so
// only a failure to read the queue fails the job.
func (j *calendarResyncJob) Run(ctx context.Context) error {
	report, err := j.sites.ResyncFailed(ctx, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch_size": j.batch,
		"attempted":  report.Attempted,
		"synced":     report.Synced,
		"failed":     report.Failed,
	})
	if err != nil {
		return fmt.Errorf("calendar resync: %w", err)
	}
	if report.Failed > 0 {
		j.logg.Warn(logCtx, "calendar resync left sites out of sync")
		return nil
	}
	j.logg.Info(logCtx, "calendar resync complete")
	return nil
}
