package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/notifications"
	apperrors "github.com/charlesng35/estatecrm/pkg/errors"
)

type recordingHandler struct {
	approved []string
	rejected []string
	custom   []string
	err      error
}

func (h *recordingHandler) OnApproved(_ context.Context, contextID, userID string) error {
	h.approved = append(h.approved, contextID+":"+userID)
	return h.err
}

func (h *recordingHandler) OnRejected(_ context.Context, contextID, userID string) error {
	h.rejected = append(h.rejected, contextID+":"+userID)
	return h.err
}

type customActionHandler struct {
	recordingHandler
}

func (h *customActionHandler) OnAction(_ context.Context, actionType, contextID, _ string) error {
	h.custom = append(h.custom, actionType+":"+contextID)
	return nil
}

func TestExecuteActionApprovesTicketButKeepsItPending(t *testing.T) {
	registry := notifications.NewRegistry()
	f := newFixture(t, WithRegistry(registry))
	ctx := context.Background()

	f.addUserWithDepartment(t, "user-5", models.RoleAdmin, models.DepartmentManagement, true)

	approvals, err := NewApprovalService(f.db, nil, nil)
	require.NoError(t, err)
	registry.MustRegister(TicketContextType, approvals)

	ticket, err := approvals.CreateTicket(ctx, CreateTicketInput{Code: "T77", Title: "Reserva depto 4B"})
	require.NoError(t, err)

	// Five of six departments approve; the architect has not voted yet.
	for _, department := range models.Departments() {
		if department == models.DepartmentArchitect {
			continue
		}
		_, err := approvals.Vote(ctx, VoteInput{TicketID: ticket.ID, Department: department, Approved: true, UserID: "signer"})
		require.NoError(t, err)
	}

	notification := f.notify(t, CreateNotificationInput{
		Audience:    models.ToUser("user-5"),
		Message:     "Ticket T77 pendiente de aprobación",
		ContextType: TicketContextType,
		ContextID:   ticket.ID,
		Actions: []models.Action{
			{ActionType: models.ActionApprove, Label: "Aprobar"},
			{ActionType: models.ActionReject, Label: "Rechazar"},
		},
	})
	require.True(t, notification.Actionable)

	action, err := f.service.ExecuteAction(ctx, ExecuteActionInput{
		NotificationID: notification.ID,
		UserID:         "user-5",
		ActionType:     models.ActionApprove,
	})
	require.NoError(t, err)
	require.Equal(t, "Aprobar", action.Label)
	require.Equal(t, models.DispatchDispatched, action.DispatchStatus)

	require.EqualValues(t, 1, f.count(t, &models.NotificationAction{}, "notification_id = ? AND user_id = ?", notification.ID, "user-5"))
	require.EqualValues(t, 1, f.count(t, &models.NotificationRead{}, "notification_id = ? AND user_id = ?", notification.ID, "user-5"))

	reloaded, err := approvals.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApprovalPending, reloaded.Status)
	for _, signature := range reloaded.Signatures {
		if signature.Department == models.DepartmentArchitect {
			require.Equal(t, models.ApprovalPending, signature.Decision)
		}
		if signature.Department == models.DepartmentManagement {
			require.Equal(t, models.ApprovalApproved, signature.Decision)
			require.NotNil(t, signature.DecidedBy)
			require.Equal(t, "user-5", *signature.DecidedBy)
		}
	}
}

func TestExecuteActionToleratesUnregisteredContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	notification := f.notify(t, CreateNotificationInput{
		Audience:    models.ToUser("user-1"),
		Message:     "Contrato listo",
		ContextType: "contract",
		ContextID:   "9",
	})

	action, err := f.service.ExecuteAction(ctx, ExecuteActionInput{
		NotificationID: notification.ID,
		UserID:         "user-1",
		ActionType:     models.ActionApprove,
		Label:          "Aprobar",
	})
	require.NoError(t, err)
	require.Equal(t, models.DispatchUnhandled, action.DispatchStatus)
	require.Contains(t, action.DispatchError, "contract")

	logged, err := f.service.ListActions(ctx, notification.ID)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	require.Equal(t, models.DispatchUnhandled, logged[0].DispatchStatus)
}

func TestExecuteActionRecordsHandlerFailureWithoutReturningIt(t *testing.T) {
	registry := notifications.NewRegistry()
	handler := &recordingHandler{err: errors.New("ticket locked")}
	registry.MustRegister("ticket", handler)
	f := newFixture(t, WithRegistry(registry))
	ctx := context.Background()

	notification := f.notify(t, CreateNotificationInput{
		Audience:    models.ToUser("user-1"),
		Message:     "Rechazar ticket",
		ContextType: "ticket",
		ContextID:   "77",
	})

	action, err := f.service.ExecuteAction(ctx, ExecuteActionInput{
		NotificationID: notification.ID,
		UserID:         "user-1",
		ActionType:     models.ActionReject,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"77:user-1"}, handler.rejected)
	require.Equal(t, models.DispatchFailed, action.DispatchStatus)
	require.Equal(t, "ticket locked", action.DispatchError)
	require.EqualValues(t, 1, f.count(t, &models.NotificationRead{}, "notification_id = ?", notification.ID))
}

func TestExecuteActionRoutesCustomActions(t *testing.T) {
	registry := notifications.NewRegistry()
	custom := &customActionHandler{}
	plain := &recordingHandler{}
	registry.MustRegister("event", custom)
	registry.MustRegister("complaint", plain)
	f := newFixture(t, WithRegistry(registry))
	ctx := context.Background()

	event := f.notify(t, CreateNotificationInput{Audience: models.ToUser("user-1"), Message: "Evento", ContextType: "event", ContextID: "e1"})
	complaint := f.notify(t, CreateNotificationInput{Audience: models.ToUser("user-1"), Message: "Reclamo", ContextType: "complaint", ContextID: "c1"})

	action, err := f.service.ExecuteAction(ctx, ExecuteActionInput{NotificationID: event.ID, UserID: "user-1", ActionType: "reschedule"})
	require.NoError(t, err)
	require.Equal(t, models.DispatchDispatched, action.DispatchStatus)
	require.Equal(t, []string{"reschedule:e1"}, custom.custom)

	action, err = f.service.ExecuteAction(ctx, ExecuteActionInput{NotificationID: complaint.ID, UserID: "user-1", ActionType: "escalate"})
	require.NoError(t, err)
	require.Equal(t, models.DispatchUnhandled, action.DispatchStatus)
}

func TestExecuteActionRejectsUnknownNotification(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ExecuteAction(context.Background(), ExecuteActionInput{
		NotificationID: "missing",
		UserID:         "user-1",
		ActionType:     models.ActionApprove,
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Zero(t, f.count(t, &models.NotificationAction{}, "1 = 1"))
}
