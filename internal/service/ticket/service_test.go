package ticket

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5"

	"bugtracker/internal/model"
	"bugtracker/pkg/rbac"
)

type fakeTicketRepo struct {
	nextID  int
	tickets map[int]model.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{nextID: 1, tickets: map[int]model.Ticket{}}
}

func (f *fakeTicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	t.ID = f.nextID
	f.nextID++
	t.Status = model.StatusTodo
	t.CreatedAt = time.Now()
	f.tickets[t.ID] = *t
	return nil
}

func (f *fakeTicketRepo) FindByID(ctx context.Context, id int) (*model.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := t
	return &out, nil
}

func (f *fakeTicketRepo) Update(ctx context.Context, id int, p model.TicketPatch) (*model.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if p.Title.Set {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.Status.Set {
		t.Status = p.Status.Value
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	if p.Type.Set {
		t.Type = p.Type.Value
	}
	if p.AssigneeID.Set {
		if p.AssigneeID.Valid {
			v := p.AssigneeID.Value
			t.AssigneeID = &v
		} else {
			t.AssigneeID = nil
		}
	}
	now := time.Now()
	t.UpdatedAt = &now
	f.tickets[id] = t
	out := t
	return &out, nil
}

func (f *fakeTicketRepo) ListByProject(ctx context.Context, projectID int, filter model.TicketFilter) ([]model.Ticket, error) {
	var out []model.Ticket
	for _, t := range f.tickets {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) Delete(ctx context.Context, id int) error {
	delete(f.tickets, id)
	return nil
}

type fakeProjectRepo struct {
	projects map[int]model.Project
}

func (f *fakeProjectRepo) FindByID(ctx context.Context, id int) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := p
	return &out, nil
}

type fakeUserRepo struct {
	users map[int]model.User
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := u
	return &out, nil
}

type capturingPublisher struct {
	keys []string
}

func (c *capturingPublisher) Publish(routingKey string, payload any) error {
	c.keys = append(c.keys, routingKey)
	return nil
}

var (
	admin  = model.UserSummary{ID: 1, Email: "admin@example.com", Role: rbac.RoleAdmin}
	dev    = model.UserSummary{ID: 2, Email: "dev@example.com", Role: rbac.RoleDeveloper}
	viewer = model.UserSummary{ID: 3, Email: "viewer@example.com", Role: rbac.RoleViewer}
)

func newTestService(t *testing.T) (*Service, *fakeTicketRepo, *capturingPublisher) {
	t.Helper()
	tickets := newFakeTicketRepo()
	projects := &fakeProjectRepo{projects: map[int]model.Project{
		10: {ID: 10, Name: "portal", OwnerID: admin.ID},
	}}
	users := &fakeUserRepo{users: map[int]model.User{
		1: {ID: 1, Email: admin.Email, Role: rbac.RoleAdmin},
		2: {ID: 2, Email: dev.Email, Role: rbac.RoleDeveloper},
		3: {ID: 3, Email: viewer.Email, Role: rbac.RoleViewer},
	}}
	pub := &capturingPublisher{}
	svc := NewService(tickets, projects, users, pub, zap.NewNop())
	return svc, tickets, pub
}

func TestCreateStartsAtTodo(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.Create(context.Background(), dev, 10, CreateRequest{Title: "crash on login"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.Status != model.StatusTodo {
		t.Errorf("status = %q, want todo", got.Status)
	}
	if got.Priority != model.PriorityMedium || got.Type != model.TypeTask {
		t.Errorf("defaults not applied: priority=%q type=%q", got.Priority, got.Type)
	}
	if got.ReporterID != dev.ID {
		t.Errorf("reporter = %d, want %d", got.ReporterID, dev.ID)
	}
}

func TestCreateSilentlyDropsAssigneeForNonAdmin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	assignee := 42

	got, err := svc.Create(context.Background(), dev, 10, CreateRequest{
		Title:      "crash on login",
		AssigneeID: &assignee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.AssigneeID != nil {
		t.Errorf("assignee_id = %v, want nil", *got.AssigneeID)
	}
	if stored := repo.tickets[got.ID]; stored.AssigneeID != nil {
		t.Errorf("persisted assignee_id = %v, want nil", *stored.AssigneeID)
	}
}

func TestCreateKeepsAssigneeForAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	assignee := 2

	got, err := svc.Create(context.Background(), admin, 10, CreateRequest{
		Title:      "crash on login",
		AssigneeID: &assignee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.AssigneeID == nil || *got.AssigneeID != 2 {
		t.Errorf("assignee_id = %v, want 2", got.AssigneeID)
	}
	if got.Assignee == nil || got.Assignee.Email != dev.Email {
		t.Errorf("assignee summary not resolved: %+v", got.Assignee)
	}
}

func TestCreateUnknownProject(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), admin, 99, CreateRequest{Title: "x"})
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}

func TestUpdateDeniedForUnassignedDeveloper(t *testing.T) {
	svc, repo, _ := newTestService(t)
	created, _ := svc.Create(context.Background(), admin, 10, CreateRequest{Title: "bug"})

	before := repo.tickets[created.ID]
	_, err := svc.Update(context.Background(), dev, created.ID, model.TicketPatch{
		Status: model.SomeOf(model.StatusDone),
	})

	var denied *rbac.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want PermissionDeniedError", err)
	}
	if after := repo.tickets[created.ID]; after != before {
		t.Errorf("ticket changed after deny: %+v -> %+v", before, after)
	}
}

func TestAssignedDeveloperMayTransitionButNotReassign(t *testing.T) {
	svc, repo, _ := newTestService(t)
	assignee := dev.ID
	created, _ := svc.Create(context.Background(), admin, 10, CreateRequest{Title: "bug", AssigneeID: &assignee})

	// non-null assignee change is a reassign: denied
	before := repo.tickets[created.ID]
	_, err := svc.Update(context.Background(), dev, created.ID, model.TicketPatch{
		AssigneeID: model.SomeOf(3),
	})
	var denied *rbac.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("reassign err = %v, want PermissionDeniedError", err)
	}
	if after := repo.tickets[created.ID]; after != before {
		t.Errorf("ticket changed after denied reassign")
	}

	// plain status change succeeds and only status changes
	updated, err := svc.Update(context.Background(), dev, created.ID, model.TicketPatch{
		Status: model.SomeOf(model.StatusDone),
	})
	if err != nil {
		t.Fatalf("status update: %v", err)
	}
	if updated.Status != model.StatusDone {
		t.Errorf("status = %q, want done", updated.Status)
	}
	if updated.Title != "bug" || updated.AssigneeID == nil || *updated.AssigneeID != dev.ID {
		t.Errorf("fields beyond status changed: %+v", updated)
	}
}

func TestAdminReassignAndClear(t *testing.T) {
	svc, _, _ := newTestService(t)
	assignee := dev.ID
	created, _ := svc.Create(context.Background(), admin, 10, CreateRequest{Title: "bug", AssigneeID: &assignee})

	updated, err := svc.Update(context.Background(), admin, created.ID, model.TicketPatch{
		AssigneeID: model.SomeOf(3),
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if updated.AssigneeID == nil || *updated.AssigneeID != 3 {
		t.Errorf("assignee = %v, want 3", updated.AssigneeID)
	}

	cleared, err := svc.Update(context.Background(), admin, created.ID, model.TicketPatch{
		AssigneeID: model.NullOf[int](),
	})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.AssigneeID != nil {
		t.Errorf("assignee = %v, want nil after explicit null", cleared.AssigneeID)
	}
}

func TestUpdateDeniedForViewer(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, _ := svc.Create(context.Background(), admin, 10, CreateRequest{Title: "bug"})

	_, err := svc.Update(context.Background(), viewer, created.ID, model.TicketPatch{
		Status: model.SomeOf(model.StatusDone),
	})
	var denied *rbac.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want PermissionDeniedError", err)
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, _ := svc.Create(context.Background(), admin, 10, CreateRequest{Title: "bug"})

	_, err := svc.Update(context.Background(), admin, created.ID, model.TicketPatch{
		Status: model.SomeOf("archived"),
	})
	var invalid *InvalidFieldError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidFieldError", err)
	}
}

func TestUpdateUnknownTicket(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), admin, 404, model.TicketPatch{
		Status: model.SomeOf(model.StatusDone),
	})
	if !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("err = %v, want ErrTicketNotFound", err)
	}
}

func TestDeleteAdminOnly(t *testing.T) {
	svc, repo, _ := newTestService(t)
	created, _ := svc.Create(context.Background(), admin, 10, CreateRequest{Title: "bug"})

	for _, actor := range []model.UserSummary{dev, viewer} {
		err := svc.Delete(context.Background(), actor, created.ID)
		var denied *rbac.PermissionDeniedError
		if !errors.As(err, &denied) {
			t.Fatalf("%s delete err = %v, want PermissionDeniedError", actor.Role, err)
		}
	}
	if _, ok := repo.tickets[created.ID]; !ok {
		t.Fatal("ticket removed by denied delete")
	}

	if err := svc.Delete(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, ok := repo.tickets[created.ID]; ok {
		t.Error("ticket still present after admin delete")
	}
}

func TestEventsPublished(t *testing.T) {
	svc, _, pub := newTestService(t)
	created, _ := svc.Create(context.Background(), admin, 10, CreateRequest{Title: "bug"})
	svc.Update(context.Background(), admin, created.ID, model.TicketPatch{Status: model.SomeOf(model.StatusDone)})
	svc.Delete(context.Background(), admin, created.ID)

	want := []string{"ticket.created", "ticket.updated", "ticket.deleted"}
	if len(pub.keys) != len(want) {
		t.Fatalf("published %v, want %v", pub.keys, want)
	}
	for i := range want {
		if pub.keys[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, pub.keys[i], want[i])
		}
	}
}
