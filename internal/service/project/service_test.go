package project

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bugtracker/internal/model"
	"bugtracker/pkg/rbac"
)

type memberKey struct{ projectID, userID int }

type fakeStore struct {
	nextID   int
	projects map[int]model.Project
	members  map[memberKey]bool
	users    map[int]model.User
	tickets  map[int]int // ticket id -> project id, for cascade checks
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		projects: map[int]model.Project{},
		members:  map[memberKey]bool{},
		users:    map[int]model.User{},
		tickets:  map[int]int{},
	}
}

func (f *fakeStore) CreateWithOwner(ctx context.Context, p *model.Project) error {
	p.ID = f.nextID
	f.nextID++
	f.projects[p.ID] = *p
	f.members[memberKey{p.ID, p.OwnerID}] = true
	return nil
}

func (f *fakeStore) FindByID(ctx context.Context, id int) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := p
	return &out, nil
}

func (f *fakeStore) ListByMember(ctx context.Context, userID int) ([]model.Project, error) {
	out := []model.Project{}
	for key := range f.members {
		if key.userID == userID {
			out = append(out, f.projects[key.projectID])
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteCascade(ctx context.Context, projectID int) (int, error) {
	deleted := 0
	for id, pid := range f.tickets {
		if pid == projectID {
			delete(f.tickets, id)
			deleted++
		}
	}
	for key := range f.members {
		if key.projectID == projectID {
			delete(f.members, key)
		}
	}
	delete(f.projects, projectID)
	return deleted, nil
}

func (f *fakeStore) Add(ctx context.Context, projectID, userID int) error {
	f.members[memberKey{projectID, userID}] = true
	return nil
}

func (f *fakeStore) Exists(ctx context.Context, projectID, userID int) (bool, error) {
	return f.members[memberKey{projectID, userID}], nil
}

func (f *fakeStore) ListUsers(ctx context.Context, projectID int) ([]model.User, error) {
	out := []model.User{}
	for key := range f.members {
		if key.projectID == projectID {
			out = append(out, f.users[key.userID])
		}
	}
	return out, nil
}

// fakeUserStore adapts fakeStore to the UserRepo interface: both
// ProjectRepo and UserRepo declare FindByID with different return
// types, so one struct cannot implement both directly.
type fakeUserStore struct{ *fakeStore }

func (f fakeUserStore) FindByID(ctx context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := u
	return &out, nil
}

var (
	admin      = model.UserSummary{ID: 1, Role: rbac.RoleAdmin}
	otherAdmin = model.UserSummary{ID: 5, Role: rbac.RoleAdmin}
	dev        = model.UserSummary{ID: 2, Role: rbac.RoleDeveloper}
	viewer     = model.UserSummary{ID: 3, Role: rbac.RoleViewer}
)

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.users = map[int]model.User{
		1: {ID: 1, Email: "admin@example.com", Role: rbac.RoleAdmin},
		2: {ID: 2, Email: "dev@example.com", Role: rbac.RoleDeveloper},
		3: {ID: 3, Email: "viewer@example.com", Role: rbac.RoleViewer},
		5: {ID: 5, Email: "admin2@example.com", Role: rbac.RoleAdmin},
	}
	return NewService(store, store, fakeUserStore{store}, nil, zap.NewNop()), store
}

func TestCreateAdminOnly(t *testing.T) {
	svc, _ := newTestService(t)

	for _, actor := range []model.UserSummary{dev, viewer} {
		_, err := svc.Create(context.Background(), actor, "portal", "")
		var denied *rbac.PermissionDeniedError
		if !errors.As(err, &denied) {
			t.Fatalf("%s create err = %v, want PermissionDeniedError", actor.Role, err)
		}
	}

	p, err := svc.Create(context.Background(), admin, "portal", "customer portal")
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if p.OwnerID != admin.ID {
		t.Errorf("owner = %d, want creator %d", p.OwnerID, admin.ID)
	}
}

func TestCreateAutoAddsOwnerAsMember(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Create(context.Background(), admin, "portal", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := svc.MyProjects(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("my projects: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != p.ID {
		t.Fatalf("owner's projects = %v, want [%d]", mine, p.ID)
	}

	other, err := svc.MyProjects(context.Background(), dev.ID)
	if err != nil {
		t.Fatalf("my projects: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("unrelated user sees %v", other)
	}
}

func TestAddMemberRequiresOwningAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	p, _ := svc.Create(context.Background(), admin, "portal", "")

	// an admin who does not own the project is refused
	err := svc.AddMember(context.Background(), otherAdmin, p.ID, dev.ID)
	var denied *rbac.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("non-owning admin err = %v, want PermissionDeniedError", err)
	}

	if err := svc.AddMember(context.Background(), admin, p.ID, dev.ID); err != nil {
		t.Fatalf("owning admin add: %v", err)
	}

	mine, _ := svc.MyProjects(context.Background(), dev.ID)
	if len(mine) != 1 {
		t.Errorf("added member does not see the project")
	}
}

func TestAddMemberDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	p, _ := svc.Create(context.Background(), admin, "portal", "")

	if err := svc.AddMember(context.Background(), admin, p.ID, dev.ID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := svc.AddMember(context.Background(), admin, p.ID, dev.ID); !errors.Is(err, ErrDuplicateMember) {
		t.Fatalf("second add err = %v, want ErrDuplicateMember", err)
	}
}

func TestAddMemberUnknownProjectAndUser(t *testing.T) {
	svc, _ := newTestService(t)
	p, _ := svc.Create(context.Background(), admin, "portal", "")

	if err := svc.AddMember(context.Background(), admin, 99, dev.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
	if err := svc.AddMember(context.Background(), admin, p.ID, 99); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestMembers(t *testing.T) {
	svc, _ := newTestService(t)
	p, _ := svc.Create(context.Background(), admin, "portal", "")
	svc.AddMember(context.Background(), admin, p.ID, dev.ID)

	members, err := svc.Members(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %v, want owner and dev", members)
	}

	if _, err := svc.Members(context.Background(), 99); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, store := newTestService(t)
	p, _ := svc.Create(context.Background(), admin, "portal", "")
	store.tickets[100] = p.ID
	store.tickets[101] = p.ID

	// only the owning admin may delete
	err := svc.Delete(context.Background(), otherAdmin, p.ID)
	var denied *rbac.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("non-owning admin err = %v, want PermissionDeniedError", err)
	}

	if err := svc.Delete(context.Background(), admin, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.tickets) != 0 {
		t.Errorf("tickets survived the cascade: %v", store.tickets)
	}
	if _, ok := store.projects[p.ID]; ok {
		t.Error("project still present")
	}
}
