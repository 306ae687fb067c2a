package model

import "time"

// Comment belongs to a ticket. ParentID links replies into a tree; the
// API returns a flat list and clients rebuild the threading. Deleting a
// parent leaves replies pointing at the dead id on purpose.
type Comment struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	TicketID  int       `json:"ticket_id"`
	UserID    int       `json:"user_id"`
	ParentID  *int      `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}
