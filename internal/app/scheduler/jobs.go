package scheduler

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/database"
	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/services"
)

const weeklySummaryWeekKey = "scheduler.weekly-summary.week"

// eventReminders notifies event owners about appointments starting within the reminder window.
func (s *Scheduler) eventReminders(ctx context.Context, now time.Time) (JobSummary, error) {
	summary := JobSummary{Job: JobEventReminders}

	var events []models.CalendarEvent
	if err := s.db.WithContext(ctx).
		Where("reminded = ? AND completed = ?", false, false).
		Where("start >= ? AND start <= ?", now, now.Add(s.reminderWindow)).
		Order("start ASC").
		Find(&events).Error; err != nil {
		return summary, fmt.Errorf("scheduler: load events: %w", err)
	}

	for i := range events {
		event := events[i]
		s.emit(ctx, &summary, services.CreateNotificationInput{
			Audience:     models.ToUser(event.UserID),
			Message:      reminderMessage(&event),
			Type:         models.NotificationInfo,
			Priority:     models.PriorityMedium,
			Module:       "calendario",
			Link:         "/calendario",
			ContextType:  "calendar_event",
			ContextID:    event.ID,
			SourceUpdate: flagOnce(&models.CalendarEvent{}, event.ID, "reminded"),
		})
	}
	return summary, nil
}

// staleComplaints alerts post-sale staff about complaints left untouched since filing.
func (s *Scheduler) staleComplaints(ctx context.Context, now time.Time) (JobSummary, error) {
	summary := JobSummary{Job: JobStaleComplaints}

	var complaints []models.Complaint
	if err := s.db.WithContext(ctx).
		Where("status = ? AND stale_notified = ?", models.ComplaintFiled, false).
		Where("filed_at < ?", now.Add(-s.complaintStaleAfter)).
		Order("filed_at ASC").
		Find(&complaints).Error; err != nil {
		return summary, fmt.Errorf("scheduler: load complaints: %w", err)
	}

	days := int(s.complaintStaleAfter.Hours() / 24)
	for i := range complaints {
		complaint := complaints[i]
		s.emit(ctx, &summary, services.CreateNotificationInput{
			Audience:     s.roles.Audience(models.RolePostSale),
			Message:      fmt.Sprintf("Reclamo pendiente sin atender por más de %d días: %s - %s", days, complaint.Ticket, complaint.Client),
			Type:         models.NotificationWarning,
			Priority:     models.PriorityHigh,
			Module:       "postventa",
			Link:         "/postventas",
			ContextType:  "complaint",
			ContextID:    complaint.ID,
			SourceUpdate: flagOnce(&models.Complaint{}, complaint.ID, "stale_notified"),
		})
	}
	return summary, nil
}

// delayedTasks alerts the construction team about unfinished tasks past their end date.
func (s *Scheduler) delayedTasks(ctx context.Context, now time.Time) (JobSummary, error) {
	summary := JobSummary{Job: JobDelayedTasks}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var tasks []models.ConstructionTask
	if err := s.db.WithContext(ctx).
		Preload("Project").
		Where("end_date < ? AND progress < ? AND delay_notified = ?", today, 100, false).
		Order("end_date ASC").
		Find(&tasks).Error; err != nil {
		return summary, fmt.Errorf("scheduler: load construction tasks: %w", err)
	}

	for i := range tasks {
		task := tasks[i]
		input := services.DelayedTaskInput(s.roles, &task, task.Project)
		input.SourceUpdate = flagOnce(&models.ConstructionTask{}, task.ID, "delay_notified")
		s.emit(ctx, &summary, input)
	}
	return summary, nil
}

// weeklySummary sends administrators last week's client and complaint counts, once per ISO week.
func (s *Scheduler) weeklySummary(ctx context.Context, now time.Time) (JobSummary, error) {
	summary := JobSummary{Job: JobWeeklySummary}
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -7)

	db := s.db.WithContext(ctx)
	var clients, filed, solved int64
	if err := db.Model(&models.Client{}).Where("created_at > ?", since).Count(&clients).Error; err != nil {
		return summary, fmt.Errorf("scheduler: count clients: %w", err)
	}
	if err := db.Model(&models.Complaint{}).Where("filed_at > ?", since).Count(&filed).Error; err != nil {
		return summary, fmt.Errorf("scheduler: count complaints: %w", err)
	}
	if err := db.Model(&models.Complaint{}).
		Where("status = ? AND filed_at > ?", models.ComplaintSolved, since).
		Count(&solved).Error; err != nil {
		return summary, fmt.Errorf("scheduler: count solved complaints: %w", err)
	}

	year, week := now.ISOWeek()
	marker := fmt.Sprintf("%d-W%02d", year, week)

	s.emit(ctx, &summary, services.CreateNotificationInput{
		Audience:    s.roles.Audience(models.RoleAdmin),
		Message:     fmt.Sprintf("Resumen semanal: %d nuevos clientes, %d nuevos reclamos, %d reclamos solucionados", clients, filed, solved),
		Type:        models.NotificationInfo,
		Priority:    models.PriorityLow,
		Module:      "sistema",
		Link:        "/dashboard",
		ContextType: "weekly_summary",
		ContextID:   marker,
		SourceUpdate: func(tx *gorm.DB) error {
			sent, err := database.GetSystemSetting(ctx, tx, weeklySummaryWeekKey)
			if err != nil {
				return err
			}
			if sent == marker {
				return services.ErrSourceAlreadyHandled
			}
			return database.UpsertSystemSetting(ctx, tx, weeklySummaryWeekKey, marker)
		},
	})
	return summary, nil
}

// flagOnce flips a boolean column from false to true and reports ErrSourceAlreadyHandled
// when another run got there first.
func flagOnce(model any, id, column string) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("id = ? AND "+column+" = ?", id, false).
			Update(column, true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return services.ErrSourceAlreadyHandled
		}
		return nil
	}
}

func reminderMessage(event *models.CalendarEvent) string {
	if event.Client == "" {
		return fmt.Sprintf("Recordatorio: Tienes un evento %q mañana", event.Title)
	}
	return fmt.Sprintf("Recordatorio: Tienes un evento %q con %s mañana", event.Title, event.Client)
}
