package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/services"
	"github.com/charlesng35/estatecrm/pkg/response"
)

// TicketHandler exposes approval tickets.
type TicketHandler struct {
	approvals *services.ApprovalService
}

// NewTicketHandler constructs a ticket handler.
func NewTicketHandler(approvals *services.ApprovalService) *TicketHandler {
	return &TicketHandler{approvals: approvals}
}

type createTicketPayload struct {
	Code  string `json:"code" validate:"max=32"`
	Title string `json:"title" validate:"required,max=255"`
}

type votePayload struct {
	Department string `json:"department" validate:"required,department"`
	Approved   *bool  `json:"approved" validate:"required"`
	Comments   string `json:"comments" validate:"max=1000"`
}

// Create opens a ticket on behalf of the caller.
func (h *TicketHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var payload createTicketPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	ticket, err := h.approvals.CreateTicket(requestContext(c), services.CreateTicketInput{
		Code:      payload.Code,
		Title:     payload.Title,
		CreatorID: userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ticket)
}

// Get returns a ticket with its signatures.
func (h *TicketHandler) Get(c *gin.Context) {
	ticket, err := h.approvals.GetTicket(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ticket)
}

// Vote records a department decision.
func (h *TicketHandler) Vote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var payload votePayload
	if !bindAndValidate(c, &payload) {
		return
	}

	ticket, err := h.approvals.Vote(requestContext(c), services.VoteInput{
		TicketID:   c.Param("id"),
		Department: models.Department(payload.Department),
		Approved:   *payload.Approved,
		UserID:     userID,
		Comments:   payload.Comments,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ticket)
}
