package ticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bugtracker/contracts/mq"
	"bugtracker/internal/model"
	"bugtracker/pkg/metrics"
	"bugtracker/pkg/rbac"
)

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrProjectNotFound = errors.New("project not found")
)

// InvalidFieldError reports a field value outside its allowed set.
type InvalidFieldError struct {
	Field string
	Value string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

type TicketRepo interface {
	Create(ctx context.Context, t *model.Ticket) error
	FindByID(ctx context.Context, id int) (*model.Ticket, error)
	Update(ctx context.Context, id int, p model.TicketPatch) (*model.Ticket, error)
	ListByProject(ctx context.Context, projectID int, f model.TicketFilter) ([]model.Ticket, error)
	Delete(ctx context.Context, id int) error
}

type ProjectRepo interface {
	FindByID(ctx context.Context, id int) (*model.Project, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Service enforces the ticket lifecycle: who creates, who assigns, who
// transitions, who deletes.
type Service struct {
	tickets   TicketRepo
	projects  ProjectRepo
	users     UserRepo
	publisher EventPublisher
	logger    *zap.Logger
}

func NewService(tickets TicketRepo, projects ProjectRepo, users UserRepo, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		tickets:   tickets,
		projects:  projects,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateRequest carries the ticket-creation payload. There is no status
// field: every ticket starts at todo.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
	AssigneeID  *int   `json:"assignee_id"`
}

// Create makes a ticket on a project. Any authenticated actor may
// create; a supplied assignee is kept only when the actor may assign,
// otherwise it is silently dropped.
func (s *Service) Create(ctx context.Context, actor model.UserSummary, projectID int, req CreateRequest) (*model.Ticket, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, &InvalidFieldError{Field: "priority", Value: priority}
	}

	ticketType := req.Type
	if ticketType == "" {
		ticketType = model.TypeTask
	}
	if !model.ValidTicketType(ticketType) {
		return nil, &InvalidFieldError{Field: "type", Value: ticketType}
	}

	var assigneeID *int
	if req.AssigneeID != nil && rbac.Can(actor.Role, rbac.ActionAssignTicket) {
		assigneeID = req.AssigneeID
	}

	t := &model.Ticket{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Type:        ticketType,
		ProjectID:   projectID,
		ReporterID:  actor.ID,
		AssigneeID:  assigneeID,
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, err
	}

	s.resolveAssignee(ctx, t)

	s.publish(mq.RoutingKeyTicketCreated, mq.TicketCreatedPayload{
		TicketID:   t.ID,
		ProjectID:  t.ProjectID,
		Title:      t.Title,
		Priority:   t.Priority,
		Type:       t.Type,
		ReporterID: t.ReporterID,
		AssigneeID: t.AssigneeID,
		CreatedAt:  t.CreatedAt,
	})

	return t, nil
}

// List returns a project's tickets narrowed by the filter.
func (s *Service) List(ctx context.Context, projectID int, f model.TicketFilter) ([]model.Ticket, error) {
	tickets, err := s.tickets.ListByProject(ctx, projectID, f)
	if err != nil {
		return nil, err
	}

	// Resolve each distinct assignee once.
	summaries := map[int]*model.UserSummary{}
	for i := range tickets {
		t := &tickets[i]
		if t.AssigneeID == nil {
			continue
		}
		cached, ok := summaries[*t.AssigneeID]
		if !ok {
			cached = s.lookupSummary(ctx, *t.AssigneeID)
			summaries[*t.AssigneeID] = cached
		}
		t.Assignee = cached
	}
	return tickets, nil
}

// Update applies a partial patch to a ticket. Load, decide, apply,
// persist: a deny leaves the row untouched.
func (s *Service) Update(ctx context.Context, actor model.UserSummary, ticketID int, patch model.TicketPatch) (*model.Ticket, error) {
	t, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if err := rbac.Decide(actor.Role, actor.ID, rbac.ActionUpdateTicket, rbac.Resource{AssigneeID: t.AssigneeID}); err != nil {
		return nil, err
	}

	// Reassignment is a separate capability. A present-but-null
	// assignee_id only clears the field and is not treated as a
	// reassign.
	if patch.AssigneeID.Set && patch.AssigneeID.Valid {
		if err := rbac.Decide(actor.Role, actor.ID, rbac.ActionAssignTicket, rbac.Resource{}); err != nil {
			return nil, err
		}
	}

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	if patch.Empty() {
		s.resolveAssignee(ctx, t)
		return t, nil
	}

	updated, err := s.tickets.Update(ctx, ticketID, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	s.resolveAssignee(ctx, updated)

	s.publish(mq.RoutingKeyTicketUpdated, mq.TicketUpdatedPayload{
		TicketID: updated.ID,
		ActorID:  actor.ID,
		Fields:   patch.Fields(),
	})

	return updated, nil
}

// Delete removes a ticket. Admin only, no cascade: comments keep their
// ticket_id.
func (s *Service) Delete(ctx context.Context, actor model.UserSummary, ticketID int) error {
	t, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTicketNotFound
		}
		return err
	}

	if err := rbac.Decide(actor.Role, actor.ID, rbac.ActionDeleteTicket, rbac.Resource{}); err != nil {
		return err
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return err
	}

	s.publish(mq.RoutingKeyTicketDeleted, mq.TicketDeletedPayload{
		TicketID:  t.ID,
		ProjectID: t.ProjectID,
		ActorID:   actor.ID,
	})

	return nil
}

// Get returns a single ticket with its assignee resolved.
func (s *Service) Get(ctx context.Context, ticketID int) (*model.Ticket, error) {
	t, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	s.resolveAssignee(ctx, t)
	return t, nil
}

func validatePatch(p model.TicketPatch) error {
	if p.Status.Set && !model.ValidStatus(p.Status.Value) {
		return &InvalidFieldError{Field: "status", Value: p.Status.Value}
	}
	if p.Priority.Set && !model.ValidPriority(p.Priority.Value) {
		return &InvalidFieldError{Field: "priority", Value: p.Priority.Value}
	}
	if p.Type.Set && !model.ValidTicketType(p.Type.Value) {
		return &InvalidFieldError{Field: "type", Value: p.Type.Value}
	}
	return nil
}

func (s *Service) resolveAssignee(ctx context.Context, t *model.Ticket) {
	if t.AssigneeID == nil {
		t.Assignee = nil
		return
	}
	t.Assignee = s.lookupSummary(ctx, *t.AssigneeID)
}

func (s *Service) lookupSummary(ctx context.Context, userID int) *model.UserSummary {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil
	}
	summary := u.Summary()
	return &summary
}

func (s *Service) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		s.logger.Warn("Failed to publish event", zap.Error(err), zap.String("routing_key", routingKey))
		metrics.IncrementEventPublished(routingKey, "failed")
		return
	}
	metrics.IncrementEventPublished(routingKey, "success")
}
