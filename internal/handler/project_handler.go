package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugtracker/internal/service/project"
)

type ProjectHandler struct {
	projects *project.Service
	logger   *zap.Logger
}

func NewProjectHandler(projects *project.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actor := Actor(c)
	p, err := h.projects.Create(c.Request.Context(), actor, req.Name, req.Description)
	if err != nil {
		if denied(c, err) {
			return
		}
		h.logger.Error("CreateProject: failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	h.logger.Info("CreateProject: success",
		zap.Int("project_id", p.ID),
		zap.Int("owner_id", actor.ID))
	c.JSON(http.StatusCreated, p)
}

// MyProjects lists the projects the caller is a member of.
func (h *ProjectHandler) MyProjects(c *gin.Context) {
	projects, err := h.projects.MyProjects(c.Request.Context(), Actor(c).ID)
	if err != nil {
		h.logger.Error("MyProjects: failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

type addMemberRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

func (h *ProjectHandler) AddMember(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actor := Actor(c)
	err = h.projects.AddMember(c.Request.Context(), actor, projectID, req.UserID)
	if err != nil {
		switch {
		case denied(c, err):
		case errors.Is(err, project.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		case errors.Is(err, project.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, project.ErrDuplicateMember):
			c.JSON(http.StatusConflict, gin.H{"error": "user is already a member"})
		default:
			h.logger.Error("AddMember: failed",
				zap.Int("project_id", projectID),
				zap.Int("user_id", req.UserID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		}
		return
	}

	h.logger.Info("AddMember: success",
		zap.Int("project_id", projectID),
		zap.Int("user_id", req.UserID))
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (h *ProjectHandler) Members(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	members, err := h.projects.Members(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.logger.Error("Members: failed", zap.Int("project_id", projectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	err = h.projects.Delete(c.Request.Context(), Actor(c), projectID)
	if err != nil {
		switch {
		case denied(c, err):
		case errors.Is(err, project.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		default:
			h.logger.Error("DeleteProject: failed", zap.Int("project_id", projectID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
		}
		return
	}

	h.logger.Info("DeleteProject: success", zap.Int("project_id", projectID))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
