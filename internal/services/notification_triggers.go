package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/pkg/logger"
	"github.com/charlesng35/estatecrm/pkg/metrics"
)

// Notifier is the creation entry point used by trigger producers.
type Notifier interface {
	Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error)
}

// NotificationTriggers turns domain events into notifications. Every method is fire and
// forget: the calling domain has already committed its own write, so failures are
// logged and counted but never returned.
type NotificationTriggers struct {
	notifier Notifier
	roles    *RoleCatalog
	log      *zap.Logger
}

// NewNotificationTriggers constructs the event-driven producers.
func NewNotificationTriggers(notifier Notifier, roles *RoleCatalog) *NotificationTriggers {
	return &NotificationTriggers{
		notifier: notifier,
		roles:    roles,
		log:      logger.WithModule("triggers"),
	}
}

// Notify creates an arbitrary notification on behalf of a domain module.
func (t *NotificationTriggers) Notify(ctx context.Context, input CreateNotificationInput) {
	t.fire(ctx, "notify", input)
}

// NotifyAllUsers broadcasts a system message to every active user.
func (t *NotificationTriggers) NotifyAllUsers(ctx context.Context, message string, notificationType models.NotificationType, link string) {
	t.fire(ctx, "all_users", CreateNotificationInput{
		Audience: models.ToAll(),
		Message:  message,
		Type:     notificationType,
		Module:   "sistema",
		Link:     link,
	})
}

// ClientCreated tells the sales team about a new client.
func (t *NotificationTriggers) ClientCreated(ctx context.Context, client *models.Client) {
	t.fire(ctx, "client_created", CreateNotificationInput{
		Audience:    t.roleAudience(models.RoleCommercial),
		Message:     fmt.Sprintf("Nuevo cliente registrado: %s %s", client.FirstName, client.LastName),
		Type:        models.NotificationInfo,
		Module:      "clientes",
		Link:        "/clientes",
		ContextType: "client",
		ContextID:   client.ID,
	})
}

// ProjectUpdated tells administrators a project changed.
func (t *NotificationTriggers) ProjectUpdated(ctx context.Context, project *models.Project) {
	t.fire(ctx, "project_updated", CreateNotificationInput{
		Audience:    t.roleAudience(models.RoleAdmin),
		Message:     fmt.Sprintf("Proyecto actualizado: %s", project.Name),
		Type:        models.NotificationInfo,
		Module:      "proyectos",
		Link:        "/proyectos",
		ContextType: "project",
		ContextID:   project.ID,
	})
}

// ComplaintCreated alerts the post-sale team about a new complaint.
func (t *NotificationTriggers) ComplaintCreated(ctx context.Context, complaint *models.Complaint) {
	t.fire(ctx, "complaint_created", CreateNotificationInput{
		Audience:    t.roleAudience(models.RolePostSale),
		Message:     fmt.Sprintf("Nuevo reclamo: %s - %s", complaint.Ticket, complaint.Client),
		Type:        models.NotificationWarning,
		Priority:    models.PriorityHigh,
		Module:      "postventa",
		Link:        "/postventas",
		ContextType: "complaint",
		ContextID:   complaint.ID,
	})
}

// ComplaintStatusChanged reports a complaint moving between workflow states.
func (t *NotificationTriggers) ComplaintStatusChanged(ctx context.Context, complaint *models.Complaint, from, to string) {
	t.fire(ctx, "complaint_status_changed", CreateNotificationInput{
		Audience:    t.roleAudience(models.RolePostSale),
		Message:     fmt.Sprintf("Reclamo %s cambió de estado: %s → %s", complaint.Ticket, from, to),
		Type:        models.NotificationInfo,
		Module:      "postventa",
		Link:        "/postventas",
		ContextType: "complaint",
		ContextID:   complaint.ID,
	})
}

// EventCreated confirms a new calendar event to its owner.
func (t *NotificationTriggers) EventCreated(ctx context.Context, event *models.CalendarEvent) {
	t.fire(ctx, "event_created", CreateNotificationInput{
		Audience:    models.ToUser(event.UserID),
		Message:     fmt.Sprintf("Nuevo evento: %s con %s", event.Title, event.Client),
		Type:        models.NotificationInfo,
		Module:      "calendario",
		Link:        "/calendario",
		ContextType: "event",
		ContextID:   event.ID,
	})
}

// ConstructionTaskDelayed alerts the construction team about a late task.
func (t *NotificationTriggers) ConstructionTaskDelayed(ctx context.Context, task *models.ConstructionTask, project *models.ConstructionProject) {
	if t == nil {
		return
	}
	t.fire(ctx, "construction_task_delayed", DelayedTaskInput(t.roles, task, project))
}

// DelayedTaskInput builds the construction-team alert for a task past its end date.
func DelayedTaskInput(roles *RoleCatalog, task *models.ConstructionTask, project *models.ConstructionProject) CreateNotificationInput {
	return CreateNotificationInput{
		Audience:    roles.Audience(models.RoleConstruction),
		Message:     delayedTaskMessage(task, project),
		Type:        models.NotificationError,
		Priority:    models.PriorityHigh,
		Module:      "obras",
		Link:        "/obras",
		ContextType: "construction_task",
		ContextID:   task.ID,
	}
}

// TicketCreated asks administrators to sign off a new approval ticket. Recipients can
// approve or reject straight from the notification; the vote counts for their department.
func (t *NotificationTriggers) TicketCreated(ctx context.Context, ticket *models.ApprovalTicket) {
	t.fire(ctx, "ticket_created", CreateNotificationInput{
		Audience:    t.roleAudience(models.RoleAdmin),
		Message:     fmt.Sprintf("Ticket %s pendiente de aprobación: %s", ticket.Code, ticket.Title),
		Type:        models.NotificationWarning,
		Priority:    models.PriorityHigh,
		Module:      "tickets",
		Link:        "/tickets/" + ticket.ID,
		ContextType: TicketContextType,
		ContextID:   ticket.ID,
		CreatedBy:   ticket.CreatorID,
		Actions: []models.Action{
			{ActionType: models.ActionApprove, Label: "Aprobar"},
			{ActionType: models.ActionReject, Label: "Rechazar"},
		},
	})
}

// TicketVoted tells the ticket creator about a department decision.
func (t *NotificationTriggers) TicketVoted(ctx context.Context, ticket *models.ApprovalTicket, department models.Department, approved bool) {
	if t == nil || ticket == nil || ticket.CreatorID == "" {
		return
	}

	verdict, kind := "rechazó", models.NotificationError
	if approved {
		verdict, kind = "aprobó", models.NotificationSuccess
	}
	t.fire(ctx, "ticket_voted", CreateNotificationInput{
		Audience:    models.ToUser(ticket.CreatorID),
		Message:     fmt.Sprintf("%s %s el ticket %s (estado: %s)", department, verdict, ticket.Code, ticket.Status),
		Type:        kind,
		Module:      "tickets",
		Link:        "/tickets/" + ticket.ID,
		ContextType: TicketContextType,
		ContextID:   ticket.ID,
	})
}

func (t *NotificationTriggers) roleAudience(key models.RoleKey) models.Audience {
	if t == nil {
		return nil
	}
	return t.roles.Audience(key)
}

func (t *NotificationTriggers) fire(ctx context.Context, trigger string, input CreateNotificationInput) {
	if t == nil || t.notifier == nil {
		return
	}
	if _, err := t.notifier.Create(ensureContext(ctx), input); err != nil {
		metrics.TriggerFailures.WithLabelValues(trigger).Inc()
		t.log.Warn("notification trigger failed",
			zap.String("trigger", trigger),
			zap.String("context_type", input.ContextType),
			zap.String("context_id", input.ContextID),
			zap.Error(err),
		)
	}
}

func delayedTaskMessage(task *models.ConstructionTask, project *models.ConstructionProject) string {
	if project == nil || project.Name == "" {
		return fmt.Sprintf("Tarea retrasada: %s", task.Name)
	}
	return fmt.Sprintf("Tarea retrasada: %s en %s", task.Name, project.Name)
}
