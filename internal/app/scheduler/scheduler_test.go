package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/database"
	testutil "github.com/charlesng35/estatecrm/internal/database/testutil"
	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/services"
)

var monday = time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

type env struct {
	db        *gorm.DB
	roles     *services.RoleCatalog
	service   *services.NotificationService
	scheduler *Scheduler
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	roles, err := services.LoadRoleCatalog(context.Background(), db)
	require.NoError(t, err)
	svc, err := services.NewNotificationService(db, nil, services.WithClock(func() time.Time { return monday }))
	require.NoError(t, err)

	opts = append([]Option{WithNow(func() time.Time { return monday })}, opts...)
	s, err := New(db, svc, roles, opts...)
	require.NoError(t, err)

	return &env{db: db, roles: roles, service: svc, scheduler: s}
}

func (e *env) addUser(t *testing.T, id string, role models.RoleKey) {
	t.Helper()
	roleID, ok := e.roles.ID(role)
	require.True(t, ok)
	require.NoError(t, e.db.Create(&models.User{
		BaseModel: models.BaseModel{ID: id},
		Name:      id,
		Email:     id + "@example.com",
		RoleID:    &roleID,
		IsActive:  true,
	}).Error)
}

func (e *env) feed(t *testing.T, userID string) []services.NotificationView {
	t.Helper()
	items, err := e.service.Feed(context.Background(), userID, services.FeedFilter{})
	require.NoError(t, err)
	return items
}

type failingNotifier struct{}

func (failingNotifier) Create(context.Context, services.CreateNotificationInput) (*models.Notification, error) {
	return nil, errors.New("store offline")
}

func TestNewRequiresDependencies(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	_, err := New(nil, failingNotifier{}, nil)
	require.Error(t, err)

	_, err = New(db, nil, nil)
	require.Error(t, err)
}

func TestEventRemindersFireOncePerEvent(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, "agent-1", models.RoleCommercial)

	due := models.CalendarEvent{UserID: "agent-1", Title: "Visita", Client: "Ana Paz", Start: monday.Add(2 * time.Hour), End: monday.Add(3 * time.Hour)}
	later := models.CalendarEvent{UserID: "agent-1", Title: "Firma", Start: monday.Add(72 * time.Hour), End: monday.Add(73 * time.Hour)}
	done := models.CalendarEvent{UserID: "agent-1", Title: "Llamada", Start: monday.Add(time.Hour), End: monday.Add(2 * time.Hour), Completed: true}
	past := models.CalendarEvent{UserID: "agent-1", Title: "Reunión", Start: monday.Add(-time.Hour), End: monday}
	for _, event := range []*models.CalendarEvent{&due, &later, &done, &past} {
		require.NoError(t, e.db.Create(event).Error)
	}

	summary, err := e.scheduler.Run(context.Background(), JobEventReminders)
	require.NoError(t, err)
	require.Equal(t, JobSummary{Job: JobEventReminders, Processed: 1, Succeeded: 1}, summary)

	feed := e.feed(t, "agent-1")
	require.Len(t, feed, 1)
	require.Equal(t, `Recordatorio: Tienes un evento "Visita" con Ana Paz mañana`, feed[0].Message)
	require.Equal(t, "calendario", feed[0].Module)
	require.Equal(t, due.ID, feed[0].ContextID)

	var reloaded models.CalendarEvent
	require.NoError(t, e.db.First(&reloaded, "id = ?", due.ID).Error)
	require.True(t, reloaded.Reminded)

	summary, err = e.scheduler.Run(context.Background(), JobEventReminders)
	require.NoError(t, err)
	require.Zero(t, summary.Processed)
	require.Len(t, e.feed(t, "agent-1"), 1)
}

func TestStaleComplaintsNotifyPostSale(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, "pv-1", models.RolePostSale)
	e.addUser(t, "agent-1", models.RoleCommercial)

	stale := models.Complaint{Ticket: "T0001", Client: "Ana Paz", Status: models.ComplaintFiled, FiledAt: monday.Add(-96 * time.Hour)}
	fresh := models.Complaint{Ticket: "T0002", Client: "Luis Rey", Status: models.ComplaintFiled, FiledAt: monday.Add(-24 * time.Hour)}
	handled := models.Complaint{Ticket: "T0003", Client: "Eva Sol", Status: models.ComplaintInReview, FiledAt: monday.Add(-240 * time.Hour)}
	for _, complaint := range []*models.Complaint{&stale, &fresh, &handled} {
		require.NoError(t, e.db.Create(complaint).Error)
	}

	summary, err := e.scheduler.Run(context.Background(), JobStaleComplaints)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)

	feed := e.feed(t, "pv-1")
	require.Len(t, feed, 1)
	require.Equal(t, "Reclamo pendiente sin atender por más de 3 días: T0001 - Ana Paz", feed[0].Message)
	require.Equal(t, models.NotificationWarning, feed[0].Type)
	require.Empty(t, e.feed(t, "agent-1"))

	summary, err = e.scheduler.Run(context.Background(), JobStaleComplaints)
	require.NoError(t, err)
	require.Zero(t, summary.Processed)
}

func TestDelayedTasksAlertConstructionTeam(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, "obras-1", models.RoleConstruction)

	project := models.ConstructionProject{Name: "Torre Norte"}
	require.NoError(t, e.db.Create(&project).Error)

	late := models.ConstructionTask{ProjectID: project.ID, Name: "Losa", EndDate: monday.AddDate(0, 0, -2), Progress: 60}
	finished := models.ConstructionTask{ProjectID: project.ID, Name: "Cimientos", EndDate: monday.AddDate(0, 0, -5), Progress: 100}
	dueToday := models.ConstructionTask{ProjectID: project.ID, Name: "Muros", EndDate: monday, Progress: 10}
	for _, task := range []*models.ConstructionTask{&late, &finished, &dueToday} {
		require.NoError(t, e.db.Create(task).Error)
	}

	summary, err := e.scheduler.Run(context.Background(), JobDelayedTasks)
	require.NoError(t, err)
	require.Equal(t, JobSummary{Job: JobDelayedTasks, Processed: 1, Succeeded: 1}, summary)

	feed := e.feed(t, "obras-1")
	require.Len(t, feed, 1)
	require.Equal(t, "Tarea retrasada: Losa en Torre Norte", feed[0].Message)
	require.Equal(t, models.PriorityHigh, feed[0].Priority)

	var reloaded models.ConstructionTask
	require.NoError(t, e.db.First(&reloaded, "id = ?", late.ID).Error)
	require.True(t, reloaded.DelayNotified)
}

func TestWeeklySummarySentOncePerWeek(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, "admin-1", models.RoleAdmin)

	require.NoError(t, e.db.Create(&models.Client{FirstName: "Ana", BaseModel: models.BaseModel{CreatedAt: monday.AddDate(0, 0, -2)}}).Error)
	require.NoError(t, e.db.Create(&models.Client{FirstName: "Luis", BaseModel: models.BaseModel{CreatedAt: monday.AddDate(0, 0, -30)}}).Error)
	require.NoError(t, e.db.Create(&models.Complaint{Ticket: "T1", Status: models.ComplaintFiled, FiledAt: monday.AddDate(0, 0, -1)}).Error)
	require.NoError(t, e.db.Create(&models.Complaint{Ticket: "T2", Status: models.ComplaintSolved, FiledAt: monday.AddDate(0, 0, -3)}).Error)

	summary, err := e.scheduler.Run(context.Background(), JobWeeklySummary)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)

	feed := e.feed(t, "admin-1")
	require.Len(t, feed, 1)
	require.Equal(t, "Resumen semanal: 1 nuevos clientes, 2 nuevos reclamos, 1 reclamos solucionados", feed[0].Message)
	require.Equal(t, "/dashboard", feed[0].Link)

	summary, err = e.scheduler.Run(context.Background(), JobWeeklySummary)
	require.NoError(t, err)
	require.Equal(t, JobSummary{Job: JobWeeklySummary, Processed: 1, Skipped: 1}, summary)
	require.Len(t, e.feed(t, "admin-1"), 1)

	week, err := database.GetSystemSetting(context.Background(), e.db, weeklySummaryWeekKey)
	require.NoError(t, err)
	require.Equal(t, "2024-W11", week)
}

func TestFailedItemsAreCountedAndLeftForNextRun(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	roles, err := services.LoadRoleCatalog(context.Background(), db)
	require.NoError(t, err)

	s, err := New(db, failingNotifier{}, roles, WithNow(func() time.Time { return monday }))
	require.NoError(t, err)

	event := models.CalendarEvent{UserID: "agent-1", Title: "Visita", Start: monday.Add(time.Hour), End: monday.Add(2 * time.Hour)}
	require.NoError(t, db.Create(&event).Error)

	summary, err := s.Run(context.Background(), JobEventReminders)
	require.NoError(t, err)
	require.Equal(t, JobSummary{Job: JobEventReminders, Processed: 1, Failed: 1}, summary)

	var reloaded models.CalendarEvent
	require.NoError(t, db.First(&reloaded, "id = ?", event.ID).Error)
	require.False(t, reloaded.Reminded)
}

func TestRunRecordsLastRunAndRejectsUnknownJobs(t *testing.T) {
	e := newEnv(t)

	_, err := e.scheduler.Run(context.Background(), "vacuum")
	require.Error(t, err)

	summaries, err := e.scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 4)

	for job := range e.scheduler.Jobs() {
		at, ok, err := database.LastJobRun(context.Background(), e.db, job)
		require.NoError(t, err)
		require.True(t, ok, job)
		require.True(t, at.Equal(monday), job)
	}
}

func TestStartRegistersEveryJob(t *testing.T) {
	c := cron.New()
	e := newEnv(t, WithCron(c), WithSchedule(JobWeeklySummary, "@weekly"))

	require.Equal(t, "@weekly", e.scheduler.Jobs()[JobWeeklySummary])
	require.NoError(t, e.scheduler.Start())
	t.Cleanup(func() { <-e.scheduler.Stop().Done() })

	require.Len(t, c.Entries(), 4)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	e := newEnv(t, WithCron(cron.New()), WithSchedule(JobDelayedTasks, "every now and then"))
	require.Error(t, e.scheduler.Start())
}
