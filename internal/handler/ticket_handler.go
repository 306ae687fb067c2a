package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugtracker/internal/model"
	"bugtracker/internal/service/ticket"
)

type TicketHandler struct {
	tickets *ticket.Service
	logger  *zap.Logger
}

func NewTicketHandler(tickets *ticket.Service, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, logger: logger}
}

func (h *TicketHandler) Create(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req ticket.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}

	actor := Actor(c)
	t, err := h.tickets.Create(c.Request.Context(), actor, projectID, req)
	if err != nil {
		var ferr *ticket.InvalidFieldError
		switch {
		case errors.Is(err, ticket.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		case errors.As(err, &ferr):
			c.JSON(http.StatusBadRequest, gin.H{"error": ferr.Error()})
		default:
			h.logger.Error("CreateTicket: failed", zap.Int("project_id", projectID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create ticket"})
		}
		return
	}

	h.logger.Info("CreateTicket: success",
		zap.Int("ticket_id", t.ID),
		zap.Int("project_id", projectID),
		zap.Int("reporter_id", actor.ID))
	c.JSON(http.StatusCreated, t)
}

// List returns a project's tickets. Filters come in as query params:
// status, priority, assignee_id and search.
func (h *TicketHandler) List(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	filter := model.TicketFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("assignee_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee_id"})
			return
		}
		filter.AssigneeID = id
	}

	tickets, err := h.tickets.List(c.Request.Context(), projectID, filter)
	if err != nil {
		if errors.Is(err, ticket.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.logger.Error("ListTickets: failed", zap.Int("project_id", projectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tickets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *TicketHandler) Get(c *gin.Context) {
	ticketID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	t, err := h.tickets.Get(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		h.logger.Error("GetTicket: failed", zap.Int("ticket_id", ticketID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ticket"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Update(c *gin.Context) {
	ticketID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	var patch model.TicketPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actor := Actor(c)
	t, err := h.tickets.Update(c.Request.Context(), actor, ticketID, patch)
	if err != nil {
		var ferr *ticket.InvalidFieldError
		switch {
		case denied(c, err):
		case errors.Is(err, ticket.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		case errors.As(err, &ferr):
			c.JSON(http.StatusBadRequest, gin.H{"error": ferr.Error()})
		default:
			h.logger.Error("UpdateTicket: failed", zap.Int("ticket_id", ticketID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update ticket"})
		}
		return
	}

	h.logger.Info("UpdateTicket: success",
		zap.Int("ticket_id", ticketID),
		zap.Int("actor_id", actor.ID),
		zap.Strings("fields", patch.Fields()))
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Delete(c *gin.Context) {
	ticketID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	err = h.tickets.Delete(c.Request.Context(), Actor(c), ticketID)
	if err != nil {
		switch {
		case denied(c, err):
		case errors.Is(err, ticket.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		default:
			h.logger.Error("DeleteTicket: failed", zap.Int("ticket_id", ticketID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete ticket"})
		}
		return
	}

	h.logger.Info("DeleteTicket: success", zap.Int("ticket_id", ticketID))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
