package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bugtracker/internal/model"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

// CreateWithOwner inserts the project and enrolls the owner as a member
// in one transaction.
func (r *ProjectRepository) CreateWithOwner(ctx context.Context, p *model.Project) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
        INSERT INTO projects (name, description, owner_id)
        VALUES ($1, $2, $3)
        RETURNING id
    `, p.Name, p.Description, p.OwnerID).Scan(&p.ID)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err), zap.String("name", p.Name))
		return err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO project_members (user_id, project_id)
        VALUES ($1, $2)
    `, p.OwnerID, p.ID)
	if err != nil {
		r.logger.Error("Failed to enroll project owner", zap.Error(err), zap.Int("project_id", p.ID))
		return err
	}

	return tx.Commit(ctx)
}

// FindByID returns the project with the given id, or pgx.ErrNoRows.
func (r *ProjectRepository) FindByID(ctx context.Context, id int) (*model.Project, error) {
	var p model.Project
	err := r.db.QueryRow(ctx, `
        SELECT id, name, description, owner_id
        FROM projects
        WHERE id = $1
    `, id).Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByMember returns the projects the user belongs to.
func (r *ProjectRepository) ListByMember(ctx context.Context, userID int) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, `
        SELECT p.id, p.name, p.description, p.owner_id
        FROM projects p
        JOIN project_members pm ON pm.project_id = p.id
        WHERE pm.user_id = $1
        ORDER BY p.id
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteCascade removes the project together with its tickets, the
// tickets' comments and the membership rows. Returns the number of
// tickets deleted.
func (r *ProjectRepository) DeleteCascade(ctx context.Context, projectID int) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        DELETE FROM comments
        WHERE ticket_id IN (SELECT id FROM tickets WHERE project_id = $1)
    `, projectID)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM tickets WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, err
	}
	ticketsDeleted := int(tag.RowsAffected())

	if _, err := tx.Exec(ctx, `DELETE FROM project_members WHERE project_id = $1`, projectID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	r.logger.Info("Project deleted",
		zap.Int("project_id", projectID),
		zap.Int("tickets_deleted", ticketsDeleted))
	return ticketsDeleted, nil
}
