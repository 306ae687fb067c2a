package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bugtracker/contracts/mq"
	"bugtracker/internal/model"
	"bugtracker/internal/util"
	"bugtracker/pkg/metrics"
	"bugtracker/pkg/rbac"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownUser        = errors.New("user not found")
)

const userCacheTTL = 5 * time.Minute

type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	users     UserRepo
	rdb       *redis.Client
	publisher EventPublisher
	jwtSecret string
	logger    *zap.Logger
}

func NewService(users UserRepo, rdb *redis.Client, publisher EventPublisher, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		rdb:       rdb,
		publisher: publisher,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Register creates a new user. Role defaults to viewer and is immutable
// afterwards.
func (s *Service) Register(ctx context.Context, email, password, role string) (*model.User, error) {
	if role == "" {
		role = rbac.RoleViewer
	}
	if !rbac.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.publish(mq.RoutingKeyUserRegistered, mq.UserRegisteredPayload{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	})

	return u, nil
}

// Login checks credentials and returns a signed access token. The error
// never reveals whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(util.TokenClaims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}, s.jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

// ResolveUser loads the user behind a token subject, read-through the
// redis cache. Redis being down degrades to plain DB lookups.
func (s *Service) ResolveUser(ctx context.Context, userID int) (*model.User, error) {
	key := fmt.Sprintf("user:%d", userID)

	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var cached cachedUser
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached.user(), nil
			}
		}
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(cacheableUser(u)); err == nil {
			if err := s.rdb.Set(ctx, key, raw, userCacheTTL).Err(); err != nil {
				s.logger.Warn("Failed to cache user", zap.Error(err), zap.Int("user_id", userID))
			}
		}
	}

	return u, nil
}

// cacheableUser keeps the password hash in the cached record so a cache
// hit behaves exactly like a DB read. The struct exists because User's
// json tag hides PasswordHash.
type cachedUser struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func cacheableUser(u *model.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	}
}

func (c cachedUser) user() *model.User {
	return &model.User{
		ID:           c.ID,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		CreatedAt:    c.CreatedAt,
	}
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
