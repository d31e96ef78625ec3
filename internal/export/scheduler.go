package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// RunScheduled runs fn on a standard 5-field cron schedule (minute hour
// day-of-month month day-of-week) until ctx is cancelled. Examples:
// "0 6 * * *" (daily 6am), "0 6 * * 1-5" (weekdays 6am). An empty
// schedule disables scheduling and returns immediately. A failed run is
// logged and the schedule keeps going.
func RunScheduled(ctx context.Context, schedule string, fn func(context.Context) (int, error)) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		slog.Info("scheduled export disabled (no schedule configured)")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("parsing export schedule %q: %w", schedule, err)
	}
	slog.Info("scheduled export enabled", "cron", schedule)

	for {
		next := sched.Next(time.Now())
		slog.Info("next export", "at", next.Format("Mon Jan 2 15:04"))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		n, err := fn(ctx)
		if err != nil {
			slog.Error("scheduled export failed", "error", err)
			continue
		}
		slog.Info("scheduled export complete", "tickets", n)
	}
}
