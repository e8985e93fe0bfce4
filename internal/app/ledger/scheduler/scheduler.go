// Package scheduler hosts the periodic trigger that resets the spending
// accumulators at day and month boundaries. The resets themselves are bulk
// idempotent operations on the member use case; this is only the caller.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/f1v3-dev/lemontree-interview/pkg/metrics"
)

// Resetter is the slice of the member use case the trigger invokes.
type Resetter interface {
	ResetDailyAccumulate(ctx context.Context) error
	ResetMonthlyAccumulate(ctx context.Context) error
}

type LimitReset struct {
	resetter Resetter
	loc      *time.Location
	log      *logrus.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

func New(resetter Resetter, loc *time.Location, log *logrus.Logger, collector *metrics.Collector) *LimitReset {
	if loc == nil {
		loc = time.Local
	}
	return &LimitReset{
		resetter: resetter,
		loc:      loc,
		log:      log,
		metrics:  collector,
		now:      time.Now,
	}
}

// Run blocks, firing at every local midnight, until ctx is canceled.
func (l *LimitReset) Run(ctx context.Context) {
	for {
		boundary := nextMidnight(l.now().In(l.loc))
		timer := time.NewTimer(time.Until(boundary))

		select {
		case <-ctx.Done():
			timer.Stop()
			l.log.Info("stopping limit reset scheduler")
			return
		case <-timer.C:
			l.fire(ctx, boundary)
		}
	}
}

// fire runs the daily reset, and the monthly reset as well on the first of
// the month. Failures are logged and never fatal; the next boundary will
// reset the same columns again.
func (l *LimitReset) fire(ctx context.Context, boundary time.Time) {
	if err := l.resetter.ResetDailyAccumulate(ctx); err != nil {
		l.log.WithError(err).Error("daily accumulate reset failed")
	} else {
		l.log.Info("daily accumulate reset")
		if l.metrics != nil {
			l.metrics.ObserveLimitReset("daily")
		}
	}

	if boundary.Day() != 1 {
		return
	}
	if err := l.resetter.ResetMonthlyAccumulate(ctx); err != nil {
		l.log.WithError(err).Error("monthly accumulate reset failed")
	} else {
		l.log.Info("monthly accumulate reset")
		if l.metrics != nil {
			l.metrics.ObserveLimitReset("monthly")
		}
	}
}

// nextMidnight returns the first local midnight strictly after now.
func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
