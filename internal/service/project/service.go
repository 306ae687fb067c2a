package project

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
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateMember = errors.New("user already a member")
)

type ProjectRepo interface {
	CreateWithOwner(ctx context.Context, p *model.Project) error
	FindByID(ctx context.Context, id int) (*model.Project, error)
	ListByMember(ctx context.Context, userID int) ([]model.Project, error)
	DeleteCascade(ctx context.Context, projectID int) (int, error)
}

type MemberRepo interface {
	Add(ctx context.Context, projectID, userID int) error
	Exists(ctx context.Context, projectID, userID int) (bool, error)
	ListUsers(ctx context.Context, projectID int) ([]model.User, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	projects  ProjectRepo
	members   MemberRepo
	users     UserRepo
	publisher EventPublisher
	logger    *zap.Logger
}

func NewService(projects ProjectRepo, members MemberRepo, users UserRepo, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		projects:  projects,
		members:   members,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

// Create makes a new project owned by the actor and auto-adds the actor
// as its first member. Admin only.
func (s *Service) Create(ctx context.Context, actor model.UserSummary, name, description string) (*model.Project, error) {
	if err := rbac.Decide(actor.Role, actor.ID, rbac.ActionCreateProject, rbac.Resource{}); err != nil {
		return nil, err
	}

	p := &model.Project{
		Name:        name,
		Description: description,
		OwnerID:     actor.ID,
	}
	if err := s.projects.CreateWithOwner(ctx, p); err != nil {
		return nil, err
	}

	s.publish(mq.RoutingKeyProjectCreated, mq.ProjectCreatedPayload{
		ProjectID: p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
	})

	return p, nil
}

// AddMember adds a user to a project. Only the admin who owns the
// project may do this.
func (s *Service) AddMember(ctx context.Context, actor model.UserSummary, projectID, userID int) error {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProjectNotFound
		}
		return err
	}

	if err := rbac.Decide(actor.Role, actor.ID, rbac.ActionAddProjectMember, rbac.Resource{OwnerID: &p.OwnerID}); err != nil {
		return err
	}

	exists, err := s.members.Exists(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateMember
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.members.Add(ctx, projectID, userID); err != nil {
		return err
	}

	s.publish(mq.RoutingKeyProjectMemberAdded, mq.ProjectMemberAddedPayload{
		ProjectID: projectID,
		UserID:    userID,
		AddedBy:   actor.ID,
	})

	return nil
}

// MyProjects lists the projects the user is a member of.
func (s *Service) MyProjects(ctx context.Context, userID int) ([]model.Project, error) {
	return s.projects.ListByMember(ctx, userID)
}

// Members lists the users belonging to a project.
func (s *Service) Members(ctx context.Context, projectID int) ([]model.UserSummary, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	users, err := s.members.ListUsers(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := make([]model.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

// Delete removes the project and cascades to its tickets and their
// comments. Only the owning admin may delete.
func (s *Service) Delete(ctx context.Context, actor model.UserSummary, projectID int) error {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProjectNotFound
		}
		return err
	}

	if err := rbac.Decide(actor.Role, actor.ID, rbac.ActionDeleteProject, rbac.Resource{OwnerID: &p.OwnerID}); err != nil {
		return err
	}

	ticketsDeleted, err := s.projects.DeleteCascade(ctx, projectID)
	if err != nil {
		return err
	}

	s.publish(mq.RoutingKeyProjectDeleted, mq.ProjectDeletedPayload{
		ProjectID:      projectID,
		ActorID:        actor.ID,
		TicketsDeleted: ticketsDeleted,
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
