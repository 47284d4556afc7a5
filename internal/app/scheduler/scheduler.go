package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/app"
	"github.com/charlesng35/estatecrm/internal/database"
	"github.com/charlesng35/estatecrm/internal/services"
	"github.com/charlesng35/estatecrm/pkg/logger"
	"github.com/charlesng35/estatecrm/pkg/metrics"
)

// Job names, also used as metric labels and system-setting keys.
const (
	JobEventReminders  = "event-reminders"
	JobStaleComplaints = "stale-complaints"
	JobDelayedTasks    = "delayed-tasks"
	JobWeeklySummary   = "weekly-summary"
)

const (
	defaultEventRemindersSpec  = "@hourly"
	defaultStaleComplaintsSpec = "0 9 * * *"
	defaultDelayedTasksSpec    = "0 8 * * *"
	defaultWeeklySummarySpec   = "0 8 * * 1"

	defaultReminderWindow      = 24 * time.Hour
	defaultComplaintStaleAfter = 72 * time.Hour
)

// JobSummary reports what one run of a job did with its candidates.
type JobSummary struct {
	Job       string `json:"job"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context, now time.Time) (JobSummary, error)
}

// Scheduler scans source tables on a cron cadence and emits notifications for rows that
// qualify. Runs are serialised: a job never overlaps itself or any other job.
type Scheduler struct {
	db       *gorm.DB
	notifier services.Notifier
	roles    *services.RoleCatalog
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger

	mu   sync.Mutex
	jobs []*job

	specs               map[string]string
	reminderWindow      time.Duration
	complaintStaleAfter time.Duration
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for candidate selection.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedule overrides the cron specification of a job.
func WithSchedule(jobName, spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.specs[jobName] = spec
		}
	}
}

// WithReminderWindow sets how far ahead event reminders look.
func WithReminderWindow(window time.Duration) Option {
	return func(s *Scheduler) {
		if window > 0 {
			s.reminderWindow = window
		}
	}
}

// WithComplaintStaleAfter sets how long a filed complaint may wait before it is flagged.
func WithComplaintStaleAfter(after time.Duration) Option {
	return func(s *Scheduler) {
		if after > 0 {
			s.complaintStaleAfter = after
		}
	}
}

// New constructs a Scheduler with the default cadence of every job.
func New(db *gorm.DB, notifier services.Notifier, roles *services.RoleCatalog, opts ...Option) (*Scheduler, error) {
	if db == nil {
		return nil, errors.New("scheduler: db is required")
	}
	if notifier == nil {
		return nil, errors.New("scheduler: notifier is required")
	}

	s := &Scheduler{
		db:       db,
		notifier: notifier,
		roles:    roles,
		now:      time.Now,
		log:      logger.WithModule("scheduler"),
		specs: map[string]string{
			JobEventReminders:  defaultEventRemindersSpec,
			JobStaleComplaints: defaultStaleComplaintsSpec,
			JobDelayedTasks:    defaultDelayedTasksSpec,
			JobWeeklySummary:   defaultWeeklySummarySpec,
		},
		reminderWindow:      defaultReminderWindow,
		complaintStaleAfter: defaultComplaintStaleAfter,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cronLogger{log: s.log}))
	}

	s.jobs = []*job{
		{name: JobEventReminders, run: s.eventReminders},
		{name: JobStaleComplaints, run: s.staleComplaints},
		{name: JobDelayedTasks, run: s.delayedTasks},
		{name: JobWeeklySummary, run: s.weeklySummary},
	}
	for _, j := range s.jobs {
		j.spec = s.specs[j.name]
	}

	return s, nil
}

// Jobs returns the registered job names with their cron specifications.
func (s *Scheduler) Jobs() map[string]string {
	out := make(map[string]string, len(s.jobs))
	for _, j := range s.jobs {
		out[j.name] = j.spec
	}
	return out
}

// Start registers every job with cron and launches it.
func (s *Scheduler) Start() error {
	chain := cron.NewChain(cron.Recover(cronLogger{log: s.log}), cron.SkipIfStillRunning(cronLogger{log: s.log}))

	for _, j := range s.jobs {
		name := j.name
		if _, err := s.cron.AddJob(j.spec, chain.Then(cron.FuncJob(func() {
			if _, err := s.Run(context.Background(), name); err != nil {
				s.log.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
			}
		}))); err != nil {
			return fmt.Errorf("scheduler: schedule %s (%q): %w", name, j.spec, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// Run executes one job now. It waits for any other job run to finish first.
func (s *Scheduler) Run(ctx context.Context, name string) (JobSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var target *job
	for _, j := range s.jobs {
		if j.name == name {
			target = j
			break
		}
	}
	if target == nil {
		return JobSummary{Job: name}, fmt.Errorf("scheduler: unknown job %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	now := s.now().UTC()

	summary, err := target.run(ctx, now)
	summary.Job = name
	metrics.SchedulerRunDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

	if recordErr := database.RecordJobRun(ctx, s.db, name, now); recordErr != nil {
		err = multierr.Append(err, recordErr)
	}

	s.log.Info("job finished",
		zap.String("job", name),
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Error(err),
	)
	return summary, err
}

// RunOnce executes every job sequentially and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) ([]JobSummary, error) {
	summaries := make([]JobSummary, 0, len(s.jobs))
	var errs error
	for _, j := range s.jobs {
		summary, err := s.Run(ctx, j.name)
		summaries = append(summaries, summary)
		errs = multierr.Append(errs, err)
	}
	return summaries, errs
}

// emit creates one notification and folds the outcome into summary.
func (s *Scheduler) emit(ctx context.Context, summary *JobSummary, input services.CreateNotificationInput) {
	summary.Processed++

	_, err := s.notifier.Create(ctx, input)
	result := "succeeded"
	switch {
	case err == nil:
		summary.Succeeded++
	case errors.Is(err, services.ErrSourceAlreadyHandled):
		summary.Skipped++
		result = "skipped"
	default:
		summary.Failed++
		result = "failed"
		s.log.Warn("scheduled notification failed",
			zap.String("job", summary.Job),
			zap.String("context_type", input.ContextType),
			zap.String("context_id", input.ContextID),
			zap.Error(err),
		)
	}
	metrics.SchedulerItems.WithLabelValues(summary.Job, result).Inc()
}

type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// ConfigOptions maps the scheduler section of the application config onto options.
func ConfigOptions(cfg app.SchedulerConfig) []Option {
	return []Option{
		WithSchedule(JobEventReminders, cfg.EventReminders),
		WithSchedule(JobStaleComplaints, cfg.StaleComplaints),
		WithSchedule(JobDelayedTasks, cfg.DelayedTasks),
		WithSchedule(JobWeeklySummary, cfg.WeeklySummary),
		WithReminderWindow(cfg.ReminderWindow),
		WithComplaintStaleAfter(cfg.ComplaintStaleAfter),
	}
}
