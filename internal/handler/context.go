package handler

import (
	"github.com/gin-gonic/gin"

	"bugtracker/internal/model"
)

const actorContextKey = "actor"

// SetActor stores the authenticated caller on the request context.
// The auth middleware calls this after resolving the token.
func SetActor(c *gin.Context, u model.UserSummary) {
	c.Set(actorContextKey, u)
}

// Actor returns the authenticated caller. Only valid on routes behind
// the auth middleware.
func Actor(c *gin.Context) model.UserSummary {
	return c.MustGet(actorContextKey).(model.UserSummary)
}
