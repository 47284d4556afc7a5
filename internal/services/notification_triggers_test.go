package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatecrm/internal/models"
)

type failingNotifier struct {
	calls int
}

func (n *failingNotifier) Create(context.Context, CreateNotificationInput) (*models.Notification, error) {
	n.calls++
	return nil, errors.New("store offline")
}

func TestTriggersSwallowNotifierFailures(t *testing.T) {
	notifier := &failingNotifier{}
	triggers := NewNotificationTriggers(notifier, &RoleCatalog{})

	require.NotPanics(t, func() {
		triggers.ClientCreated(context.Background(), &models.Client{FirstName: "Ana", LastName: "Paz"})
		triggers.NotifyAllUsers(context.Background(), "Corte programado", models.NotificationWarning, "")
	})
	require.Equal(t, 2, notifier.calls)
}

func TestNilTriggersAreNoOps(t *testing.T) {
	var triggers *NotificationTriggers
	ctx := context.Background()

	require.NotPanics(t, func() {
		triggers.Notify(ctx, CreateNotificationInput{Audience: models.ToAll(), Message: "hola"})
		triggers.NotifyAllUsers(ctx, "Corte programado", models.NotificationWarning, "")
		triggers.ClientCreated(ctx, &models.Client{})
		triggers.ProjectUpdated(ctx, &models.Project{})
		triggers.ComplaintCreated(ctx, &models.Complaint{})
		triggers.ComplaintStatusChanged(ctx, &models.Complaint{}, models.ComplaintFiled, models.ComplaintSolved)
		triggers.EventCreated(ctx, &models.CalendarEvent{})
		triggers.ConstructionTaskDelayed(ctx, &models.ConstructionTask{}, nil)
		triggers.TicketCreated(ctx, &models.ApprovalTicket{})
		triggers.TicketVoted(ctx, &models.ApprovalTicket{CreatorID: "user-1"}, models.DepartmentLegal, true)
	})
}

func TestComplaintCreatedNotifiesPostSaleRole(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "pv-1", models.RolePostSale, true)
	f.addUser(t, "ventas-1", models.RoleCommercial, true)
	triggers := NewNotificationTriggers(f.service, f.roles)
	ctx := context.Background()

	complaint := &models.Complaint{Ticket: "T0001", Client: "Ana Paz", Status: models.ComplaintFiled, FiledAt: time.Now()}
	require.NoError(t, f.db.Create(complaint).Error)
	triggers.ComplaintCreated(ctx, complaint)

	feed, err := f.service.Feed(ctx, "pv-1", FeedFilter{})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, "Nuevo reclamo: T0001 - Ana Paz", feed[0].Message)
	require.Equal(t, models.PriorityHigh, feed[0].Priority)
	require.Equal(t, models.ModeRole, feed[0].Mode)
	require.Equal(t, "complaint", feed[0].ContextType)

	feed, err = f.service.Feed(ctx, "ventas-1", FeedFilter{})
	require.NoError(t, err)
	require.Empty(t, feed)
}

func TestEventAndTaskTriggersTargetTheRightAudience(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "agente", models.RoleCommercial, true)
	f.addUser(t, "capataz", models.RoleConstruction, true)
	triggers := NewNotificationTriggers(f.service, f.roles)
	ctx := context.Background()

	triggers.EventCreated(ctx, &models.CalendarEvent{
		BaseModel: models.BaseModel{ID: "ev-1"},
		UserID:    "agente",
		Title:     "Visita",
		Client:    "Luis",
	})
	triggers.ConstructionTaskDelayed(ctx,
		&models.ConstructionTask{BaseModel: models.BaseModel{ID: "task-1"}, Name: "Losa"},
		&models.ConstructionProject{Name: "Torre Norte"},
	)

	feed, err := f.service.Feed(ctx, "agente", FeedFilter{})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, models.ModeDirect, feed[0].Mode)
	require.Equal(t, "Nuevo evento: Visita con Luis", feed[0].Message)

	feed, err = f.service.Feed(ctx, "capataz", FeedFilter{})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, "Tarea retrasada: Losa en Torre Norte", feed[0].Message)
	require.Equal(t, models.NotificationError, feed[0].Type)
}

func TestTicketVotedSkipsTicketsWithoutCreator(t *testing.T) {
	notifier := &failingNotifier{}
	triggers := NewNotificationTriggers(notifier, &RoleCatalog{})

	triggers.TicketVoted(context.Background(), &models.ApprovalTicket{Code: "T9"}, models.DepartmentLegal, true)
	require.Zero(t, notifier.calls)
}
