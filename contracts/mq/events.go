// Package mq holds the payload contracts for events published to the
// broker. Consumers outside this repo decode against these structs.
package mq

import "time"

// Routing keys on the events exchange.
const (
	RoutingKeyUserRegistered     = "user.registered"
	RoutingKeyProjectCreated     = "project.created"
	RoutingKeyProjectDeleted     = "project.deleted"
	RoutingKeyProjectMemberAdded = "project.member_added"
	RoutingKeyTicketCreated      = "ticket.created"
	RoutingKeyTicketUpdated      = "ticket.updated"
	RoutingKeyTicketDeleted      = "ticket.deleted"
	RoutingKeyCommentCreated     = "comment.created"
	RoutingKeyCommentDeleted     = "comment.deleted"
)

type UserRegisteredPayload struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type ProjectCreatedPayload struct {
	ProjectID int    `json:"project_id"`
	Name      string `json:"name"`
	OwnerID   int    `json:"owner_id"`
}

type ProjectDeletedPayload struct {
	ProjectID int `json:"project_id"`
	ActorID   int `json:"actor_id"`
	// Tickets removed by the cascade.
	TicketsDeleted int `json:"tickets_deleted"`
}

type ProjectMemberAddedPayload struct {
	ProjectID int `json:"project_id"`
	UserID    int `json:"user_id"`
	AddedBy   int `json:"added_by"`
}

type TicketCreatedPayload struct {
	TicketID   int       `json:"ticket_id"`
	ProjectID  int       `json:"project_id"`
	Title      string    `json:"title"`
	Priority   string    `json:"priority"`
	Type       string    `json:"type"`
	ReporterID int       `json:"reporter_id"`
	AssigneeID *int      `json:"assignee_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type TicketUpdatedPayload struct {
	TicketID int      `json:"ticket_id"`
	ActorID  int      `json:"actor_id"`
	Fields   []string `json:"fields"` // names of the fields that changed
}

type TicketDeletedPayload struct {
	TicketID  int `json:"ticket_id"`
	ProjectID int `json:"project_id"`
	ActorID   int `json:"actor_id"`
}

type CommentCreatedPayload struct {
	CommentID int  `json:"comment_id"`
	TicketID  int  `json:"ticket_id"`
	AuthorID  int  `json:"author_id"`
	ParentID  *int `json:"parent_id,omitempty"`
}

type CommentDeletedPayload struct {
	CommentID int `json:"comment_id"`
	TicketID  int `json:"ticket_id"`
	ActorID   int `json:"actor_id"`
}
