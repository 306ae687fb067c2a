package comment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bugtracker/contracts/mq"
	"bugtracker/internal/model"
	"bugtracker/pkg/metrics"
	"bugtracker/pkg/rbac"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrParentNotFound  = errors.New("parent comment not found")
)

type CommentRepo interface {
	Create(ctx context.Context, c *model.Comment) error
	FindByID(ctx context.Context, id int) (*model.Comment, error)
	ListByTicket(ctx context.Context, ticketID int) ([]model.Comment, error)
	Delete(ctx context.Context, id int) error
}

type TicketRepo interface {
	FindByID(ctx context.Context, id int) (*model.Ticket, error)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	comments  CommentRepo
	tickets   TicketRepo
	publisher EventPublisher
	logger    *zap.Logger
}

func NewService(comments CommentRepo, tickets TicketRepo, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		comments:  comments,
		tickets:   tickets,
		publisher: publisher,
		logger:    logger,
	}
}

// Create adds a comment to a ticket. The author is always the caller;
// parent_id, when given, must point at an existing comment.
func (s *Service) Create(ctx context.Context, actor model.UserSummary, ticketID int, content string, parentID *int) (*model.Comment, error) {
	if _, err := s.tickets.FindByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if parentID != nil {
		if _, err := s.comments.FindByID(ctx, *parentID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	c := &model.Comment{
		Content:  content,
		TicketID: ticketID,
		UserID:   actor.ID,
		ParentID: parentID,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}

	s.publish(mq.RoutingKeyCommentCreated, mq.CommentCreatedPayload{
		CommentID: c.ID,
		TicketID:  c.TicketID,
		AuthorID:  c.UserID,
		ParentID:  c.ParentID,
	})

	return c, nil
}

// List returns the flat comment list for a ticket.
func (s *Service) List(ctx context.Context, ticketID int) ([]model.Comment, error) {
	return s.comments.ListByTicket(ctx, ticketID)
}

// Delete removes a single comment. Replies are neither cascaded nor
// re-parented: their parent_id keeps pointing at the removed id.
func (s *Service) Delete(ctx context.Context, actor model.UserSummary, commentID int) error {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCommentNotFound
		}
		return err
	}

	if err := rbac.Decide(actor.Role, actor.ID, rbac.ActionDeleteComment, rbac.Resource{AuthorID: &c.UserID}); err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}

	s.publish(mq.RoutingKeyCommentDeleted, mq.CommentDeletedPayload{
		CommentID: c.ID,
		TicketID:  c.TicketID,
		ActorID:   actor.ID,
	})

	return nil
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
