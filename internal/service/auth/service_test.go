package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bugtracker/internal/model"
	"bugtracker/internal/util"
	"bugtracker/pkg/rbac"
)

type fakeUserRepo struct {
	nextID int
	users  map[int]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]model.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := u
	return &out, nil
}

const secret = "test-secret"

func newTestService(t *testing.T) (*Service, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	return NewService(repo, nil, nil, secret, zap.NewNop()), repo
}

func TestRegisterDefaultsToViewer(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.Register(context.Background(), "a@example.com", "pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != rbac.RoleViewer {
		t.Errorf("role = %q, want viewer", u.Role)
	}
	if u.PasswordHash == "pw" || u.PasswordHash == "" {
		t.Error("password stored without hashing")
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), "a@example.com", "pw", "root"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), "a@example.com", "pw", "admin"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "a@example.com", "pw2", "viewer"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "a@example.com", "pw", "developer"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := util.ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != "developer" || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Register(context.Background(), "a@example.com", "pw", "")

	if _, err := svc.Login(context.Background(), "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestResolveUser(t *testing.T) {
	svc, _ := newTestService(t)
	u, _ := svc.Register(context.Background(), "a@example.com", "pw", "admin")

	got, err := svc.ResolveUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Email != "a@example.com" || got.Role != "admin" {
		t.Errorf("resolved %+v", got)
	}

	if _, err := svc.ResolveUser(context.Background(), 404); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("err = %v, want ErrUnknownUser", err)
	}
}
