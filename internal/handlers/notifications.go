package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/notifications"
	"github.com/charlesng35/estatecrm/internal/services"
	"github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for the notification feed.
type NotificationHandler struct {
	service *services.NotificationService
	roles   *services.RoleCatalog
	hub     *notifications.Hub
}

// NewNotificationHandler constructs a notification handler. hub may be nil when live
// delivery is disabled.
func NewNotificationHandler(service *services.NotificationService, roles *services.RoleCatalog, hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{service: service, roles: roles, hub: hub}
}

type audiencePayload struct {
	Mode    string   `json:"mode" validate:"required,oneof=direct role all specific"`
	UserID  string   `json:"user_id"`
	Role    string   `json:"role"`
	RoleID  string   `json:"role_id"`
	UserIDs []string `json:"user_ids"`
}

type createNotificationPayload struct {
	Audience    audiencePayload `json:"audience"`
	Message     string          `json:"message" validate:"required,max=2000"`
	Type        string          `json:"type" validate:"omitempty,oneof=info warning success error"`
	Priority    string          `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Module      string          `json:"module" validate:"max=64"`
	Category    string          `json:"category" validate:"max=64"`
	Link        string          `json:"link" validate:"max=255"`
	Actions     []models.Action `json:"actions"`
	Metadata    map[string]any  `json:"metadata"`
	ContextType string          `json:"context_type" validate:"max=64"`
	ContextID   string          `json:"context_id" validate:"max=64"`
	ExpiresAt   *time.Time      `json:"expires_at"`
}

type archivePayload struct {
	Reason string `json:"reason" validate:"max=255"`
}

type actionPayload struct {
	ActionType string `json:"action_type" validate:"required,max=64"`
	Label      string `json:"label" validate:"max=255"`
}

// List returns the caller's feed with the unread count as metadata.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	filter := services.FeedFilter{
		Priority: models.Priority(strings.ToLower(strings.TrimSpace(c.Query("priority")))),
		Module:   strings.TrimSpace(c.Query("module")),
		Limit:    feedLimit(c),
	}
	if unread, err := strconv.ParseBool(c.DefaultQuery("unread", "false")); err == nil {
		filter.UnreadOnly = unread
	}

	ctx := requestContext(c)
	items, err := h.service.Feed(ctx, userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.service.UnreadCount(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Count:  len(items),
		Limit:  h.service.FeedWindow(filter.Limit),
		Unread: unread,
	})
}

// UnreadCount returns how many visible notifications the caller has not read.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

// Details lists who has and has not read a notification.
func (h *NotificationHandler) Details(c *gin.Context) {
	details, err := h.service.Details(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, details)
}

// MarkRead marks a notification read for the caller.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}

// MarkAllRead marks every visible notification read for the caller.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Archive hides a notification from every recipient.
func (h *NotificationHandler) Archive(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var payload archivePayload
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &payload) {
		return
	}

	if err := h.service.Archive(requestContext(c), userID, c.Param("id"), payload.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"archived": true})
}

// Archives returns the archive records of a notification.
func (h *NotificationHandler) Archives(c *gin.Context) {
	records, err := h.service.ListArchives(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, records)
}

// Pin pins a notification for every recipient.
func (h *NotificationHandler) Pin(c *gin.Context) {
	if err := h.service.Pin(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"pinned": true})
}

// ExecuteAction runs one of the actions offered by an actionable notification.
func (h *NotificationHandler) ExecuteAction(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var payload actionPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	action, err := h.service.ExecuteAction(requestContext(c), services.ExecuteActionInput{
		NotificationID: c.Param("id"),
		UserID:         userID,
		ActionType:     payload.ActionType,
		Label:          payload.Label,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, action)
}

// Actions returns the action log of a notification.
func (h *NotificationHandler) Actions(c *gin.Context) {
	actions, err := h.service.ListActions(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, actions)
}

// Delete removes a direct notification owned by the caller.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Create lets administrators address a notification to any audience.
func (h *NotificationHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var payload createNotificationPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	audience, err := h.audienceOf(payload.Audience)
	if err != nil {
		response.Error(c, err)
		return
	}

	notification, err := h.service.Create(requestContext(c), services.CreateNotificationInput{
		Audience:    audience,
		Message:     payload.Message,
		Type:        models.NotificationType(payload.Type),
		Priority:    models.Priority(payload.Priority),
		Module:      payload.Module,
		Category:    payload.Category,
		Link:        payload.Link,
		Actions:     payload.Actions,
		Metadata:    payload.Metadata,
		ContextType: payload.ContextType,
		ContextID:   payload.ContextID,
		CreatedBy:   userID,
		ExpiresAt:   payload.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, notification)
}

// Stream upgrades the connection to a WebSocket carrying the caller's live events.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.hub.Serve(userID, c.Writer, c.Request)
}

func (h *NotificationHandler) audienceOf(payload audiencePayload) (models.Audience, error) {
	switch models.AudienceMode(payload.Mode) {
	case models.ModeDirect:
		return models.ToUser(payload.UserID), nil
	case models.ModeAll:
		return models.ToAll(), nil
	case models.ModeSpecific:
		return models.ToUsers(payload.UserIDs...), nil
	case models.ModeRole:
		roleID := strings.TrimSpace(payload.RoleID)
		if roleID == "" && payload.Role != "" {
			id, found := h.roles.ID(models.RoleKey(strings.ToLower(strings.TrimSpace(payload.Role))))
			if !found {
				return nil, errors.NewValidation("unknown role " + strconv.Quote(payload.Role))
			}
			roleID = id
		}
		return models.ToRole(roleID), nil
	}
	return nil, errors.NewValidation("unknown audience mode " + strconv.Quote(payload.Mode))
}
