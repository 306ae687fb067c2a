package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bugtracker/internal/model"
)

type MemberRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMemberRepository(db *pgxpool.Pool, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{db: db, logger: logger}
}

func (r *MemberRepository) Add(ctx context.Context, projectID, userID int) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO project_members (user_id, project_id)
        VALUES ($1, $2)
    `, userID, projectID)
	if err != nil {
		r.logger.Error("Failed to add project member",
			zap.Error(err),
			zap.Int("project_id", projectID),
			zap.Int("user_id", userID))
		return err
	}
	return nil
}

func (r *MemberRepository) Exists(ctx context.Context, projectID, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM project_members
            WHERE project_id = $1 AND user_id = $2
        )
    `, projectID, userID).Scan(&exists)
	return exists, err
}

// ListUsers returns the users enrolled in the project.
func (r *MemberRepository) ListUsers(ctx context.Context, projectID int) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `
        SELECT u.id, u.email, u.password_hash, u.role, u.created_at
        FROM users u
        JOIN project_members pm ON pm.user_id = u.id
        WHERE pm.project_id = $1
        ORDER BY u.id
    `, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
