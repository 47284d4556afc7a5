package checks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/database"
	"github.com/charlesng35/estatecrm/internal/monitoring"
)

// Scheduler verifies every scheduled job completed within twice its cron interval.
// Jobs that never ran are reported but do not degrade the result.
func Scheduler(db *gorm.DB, jobs map[string]string, now func() time.Time) monitoring.Check {
	if now == nil {
		now = time.Now
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	check := monitoring.NewCheck("scheduler", func(ctx context.Context) monitoring.ProbeResult {
		names := make([]string, 0, len(jobs))
		for name := range jobs {
			names = append(names, name)
		}
		sort.Strings(names)

		status := monitoring.StatusUp
		var notes []string
		current := now().UTC()

		for _, name := range names {
			lastRun, ok, err := database.LastJobRun(ctx, db, name)
			if err != nil {
				return monitoring.ResultFromError("scheduler", err, 0)
			}
			if !ok {
				notes = append(notes, name+": pending first run")
				continue
			}

			schedule, err := parser.Parse(jobs[name])
			if err != nil {
				status = monitoring.StatusDegraded
				notes = append(notes, name+": invalid schedule")
				continue
			}
			next := schedule.Next(lastRun)
			interval := schedule.Next(next).Sub(next)
			if current.Sub(lastRun) > 2*interval {
				status = monitoring.StatusDegraded
				notes = append(notes, name+": stale run "+lastRun.Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(notes, "; ")}
	})
	check.Optional = true
	return check
}
