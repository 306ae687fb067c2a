package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bugtracker/internal/model"
)

type CommentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCommentRepository(db *pgxpool.Pool, logger *zap.Logger) *CommentRepository {
	return &CommentRepository{db: db, logger: logger}
}

func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	query := `
        INSERT INTO comments (content, ticket_id, user_id, parent_id, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, c.Content, c.TicketID, c.UserID, c.ParentID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert comment", zap.Error(err), zap.Int("ticket_id", c.TicketID))
		return err
	}
	return nil
}

// FindByID returns the comment with the given id, or pgx.ErrNoRows.
func (r *CommentRepository) FindByID(ctx context.Context, id int) (*model.Comment, error) {
	var c model.Comment
	err := r.db.QueryRow(ctx, `
        SELECT id, content, ticket_id, user_id, parent_id, created_at
        FROM comments
        WHERE id = $1
    `, id).Scan(&c.ID, &c.Content, &c.TicketID, &c.UserID, &c.ParentID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByTicket returns the ticket's comments in insertion order.
func (r *CommentRepository) ListByTicket(ctx context.Context, ticketID int) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, content, ticket_id, user_id, parent_id, created_at
        FROM comments
        WHERE ticket_id = $1
        ORDER BY id
    `, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.TicketID, &c.UserID, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	return err
}
