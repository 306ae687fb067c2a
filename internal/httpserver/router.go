package httpserver

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bugtracker/internal/handler"
	"bugtracker/pkg/config"
)

// Handlers bundles the route handlers the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Projects *handler.ProjectHandler
	Tickets  *handler.TicketHandler
	Comments *handler.CommentHandler
}

// NewRouter wires middleware and routes. db may be nil in tests; the
// readiness probe then only reports the process as up.
func NewRouter(h Handlers, resolver UserResolver, jwtSecret string, corsCfg config.CORSConfig, db *pgxpool.Pool, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(logger))
	r.Use(MetricsMiddleware())

	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     corsCfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c, 1*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/signup", h.Auth.Signup)
	r.POST("/auth/login", h.Auth.Login)

	authed := r.Group("/", AuthMiddleware(resolver, jwtSecret, logger))

	authed.GET("/auth/me", h.Auth.Me)

	authed.POST("/projects", h.Projects.Create)
	authed.GET("/projects/my", h.Projects.MyProjects)
	authed.POST("/projects/:id/members", h.Projects.AddMember)
	authed.GET("/projects/:id/members", h.Projects.Members)
	authed.DELETE("/projects/:id", h.Projects.Delete)

	authed.POST("/tickets/projects/:projectId", h.Tickets.Create)
	authed.GET("/tickets/projects/:projectId", h.Tickets.List)
	authed.GET("/tickets/:id", h.Tickets.Get)
	authed.PATCH("/tickets/:id", h.Tickets.Update)
	authed.DELETE("/tickets/:id", h.Tickets.Delete)

	authed.POST("/comments/tickets/:ticketId", h.Comments.Create)
	authed.GET("/comments/tickets/:ticketId", h.Comments.List)
	authed.DELETE("/comments/:id", h.Comments.Delete)

	return r
}
