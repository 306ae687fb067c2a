package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugtracker/internal/service/comment"
)

type CommentHandler struct {
	comments *comment.Service
	logger   *zap.Logger
}

func NewCommentHandler(comments *comment.Service, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type createCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *int   `json:"parent_id"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	ticketID, err := strconv.Atoi(c.Param("ticketId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actor := Actor(c)
	cm, err := h.comments.Create(c.Request.Context(), actor, ticketID, req.Content, req.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, comment.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		case errors.Is(err, comment.ErrParentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parent comment not found"})
		default:
			h.logger.Error("CreateComment: failed", zap.Int("ticket_id", ticketID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create comment"})
		}
		return
	}

	h.logger.Info("CreateComment: success",
		zap.Int("comment_id", cm.ID),
		zap.Int("ticket_id", ticketID),
		zap.Int("author_id", actor.ID))
	c.JSON(http.StatusCreated, cm)
}

func (h *CommentHandler) List(c *gin.Context) {
	ticketID, err := strconv.Atoi(c.Param("ticketId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	comments, err := h.comments.List(c.Request.Context(), ticketID)
	if err != nil {
		h.logger.Error("ListComments: failed", zap.Int("ticket_id", ticketID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	err = h.comments.Delete(c.Request.Context(), Actor(c), commentID)
	if err != nil {
		switch {
		case denied(c, err):
		case errors.Is(err, comment.ErrCommentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		default:
			h.logger.Error("DeleteComment: failed", zap.Int("comment_id", commentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete comment"})
		}
		return
	}

	h.logger.Info("DeleteComment: success", zap.Int("comment_id", commentID))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
