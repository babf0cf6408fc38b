package calendar

import (
	"context"

	"github.com/angelmondragon/gearstage-backend/pkg/config"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/metrics"
)

// FromConfig returns the retrying Google mirror, or Noop when calendar sync is disabled.
func FromConfig(ctx context.Context, cfg config.CalendarConfig, m *metrics.MirrorMetrics, logg *logger.Logger) (Mirror, error) {
	if !cfg.Enabled {
		logg.Info(ctx, "calendar mirror disabled")
		return Noop{}, nil
	}
	google, err := NewGoogleMirror(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}
	return NewRetrying(google, RetryPolicy{Attempts: cfg.RetryAttempts, Step: cfg.RetryStep}, m, logg)
}
