package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/metrics"
	"google.golang.org/api/googleapi"
)

const (
	defaultAttempts = 3
	defaultStep     = time.Second
)

// Mirror operation names used in logs, metrics and error details.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MirrorFailure is attached to the DEPENDENCY_ERROR returned after the last attempt.
type MirrorFailure struct {
	Operation string `json:"operation"`
	Attempts  int    `json:"attempts"`
}

// RetryPolicy controls attempts and the linear backoff step (step, 2*step, ...).
type RetryPolicy struct {
	Attempts int
	Step     time.Duration
}

// Retrying wraps a mirror with linear-backoff retries of transient failures.
type Retrying struct {
	next    Mirror
	policy  RetryPolicy
	metrics *metrics.MirrorMetrics
	logg    *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps next.
func NewRetrying(next Mirror, policy RetryPolicy, m *metrics.MirrorMetrics, logg *logger.Logger) (*Retrying, error) {
	if next == nil {
		return nil, fmt.Errorf("mirror required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if policy.Attempts <= 0 {
		policy.Attempts = defaultAttempts
	}
	if policy.Step <= 0 {
		policy.Step = defaultStep
	}
	return &Retrying{next: next, policy: policy, metrics: m, logg: logg, sleep: sleepContext}, nil
}

func (r *Retrying) Create(ctx context.Context, summary Summary) (string, error) {
	var id string
	err := r.do(ctx, OpCreate, func(ctx context.Context) error {
		var err error
		id, err = r.next.Create(ctx, summary)
		return err
	})
	return id, err
}

func (r *Retrying) Update(ctx context.Context, externalID string, summary Summary) error {
	return r.do(ctx, OpUpdate, func(ctx context.Context) error {
		return r.next.Update(ctx, externalID, summary)
	})
}

func (r *Retrying) Delete(ctx context.Context, externalID string) error {
	return r.do(ctx, OpDelete, func(ctx context.Context) error {
		return r.next.Delete(ctx, externalID)
	})
}

func (r *Retrying) do(ctx context.Context, op string, call func(context.Context) error) error {
	attempts := 0
	for {
		err := call(ctx)
		attempts++
		if err == nil {
			r.metrics.IncCall(op, true)
			return nil
		}

		if attempts >= r.policy.Attempts || !isRetryable(err) {
			r.metrics.IncCall(op, false)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("calendar %s failed", op)).
				WithDetails(MirrorFailure{Operation: op, Attempts: attempts})
		}

		wait := time.Duration(attempts) * r.policy.Step
		logCtx := r.logg.WithFields(ctx, map[string]any{"op": op, "attempt": attempts, "backoff": wait.String(), "error": err.Error()})
		r.logg.Warn(logCtx, "calendar mirror call failed, retrying")
		r.metrics.IncRetry(op)

		if err := r.sleep(ctx, wait); err != nil {
			r.metrics.IncCall(op, false)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("calendar %s interrupted", op)).
				WithDetails(MirrorFailure{Operation: op, Attempts: attempts})
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrEventGone) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusRequestTimeout,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			// rate limit exceeded is reported as 403 by the calendar API
			for _, item := range apiErr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
