package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bugtracker/internal/model"
)

const ticketColumns = "id, title, description, status, priority, type, project_id, reporter_id, assignee_id, created_at, updated_at"

type TicketRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTicketRepository(db *pgxpool.Pool, logger *zap.Logger) *TicketRepository {
	return &TicketRepository{db: db, logger: logger}
}

func scanTicket(row interface{ Scan(dest ...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Type,
		&t.ProjectID, &t.ReporterID, &t.AssigneeID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new ticket. Status always starts at todo.
func (r *TicketRepository) Create(ctx context.Context, t *model.Ticket) error {
	query := `
        INSERT INTO tickets (title, description, status, priority, type, project_id, reporter_id, assignee_id, created_at)
        VALUES ($1, $2, 'todo', $3, $4, $5, $6, $7, NOW())
        RETURNING id, status, created_at
    `
	err := r.db.QueryRow(ctx, query,
		t.Title, t.Description, t.Priority, t.Type, t.ProjectID, t.ReporterID, t.AssigneeID,
	).Scan(&t.ID, &t.Status, &t.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert ticket", zap.Error(err), zap.Int("project_id", t.ProjectID))
		return err
	}
	return nil
}

// FindByID returns the ticket with the given id, or pgx.ErrNoRows.
func (r *TicketRepository) FindByID(ctx context.Context, id int) (*model.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE id = $1", ticketColumns)
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func buildListQuery(projectID int, f model.TicketFilter) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM tickets WHERE project_id = $1", ticketColumns)
	args := []any{projectID}

	if f.Status != "" {
		args = append(args, f.Status)
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		fmt.Fprintf(&sb, " AND priority = $%d", len(args))
	}
	if f.AssigneeID != 0 {
		args = append(args, f.AssigneeID)
		fmt.Fprintf(&sb, " AND assignee_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		fmt.Fprintf(&sb, " AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	return sb.String(), args
}

// ListByProject returns the project's tickets matching the filter,
// newest first.
func (r *TicketRepository) ListByProject(ctx context.Context, projectID int, f model.TicketFilter) ([]model.Ticket, error) {
	query, args := buildListQuery(projectID, f)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func buildUpdateQuery(id int, p model.TicketPatch) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Title.Set {
		add("title", p.Title.Value)
	}
	if p.Description.Set {
		add("description", p.Description.Value)
	}
	if p.Status.Set {
		add("status", p.Status.Value)
	}
	if p.Priority.Set {
		add("priority", p.Priority.Value)
	}
	if p.Type.Set {
		add("type", p.Type.Value)
	}
	if p.AssigneeID.Set {
		if p.AssigneeID.Valid {
			add("assignee_id", p.AssigneeID.Value)
		} else {
			add("assignee_id", nil)
		}
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), ticketColumns)
	return query, args
}

// Update applies the patch in a single statement and returns the
// updated row.
func (r *TicketRepository) Update(ctx context.Context, id int, p model.TicketPatch) (*model.Ticket, error) {
	query, args := buildUpdateQuery(id, p)
	t, err := scanTicket(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	r.logger.Info("Ticket updated",
		zap.Int("ticket_id", id),
		zap.Strings("fields", p.Fields()))
	return t, nil
}

func (r *TicketRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	return err
}
