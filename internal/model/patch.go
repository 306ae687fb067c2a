package model

import "encoding/json"

// Optional distinguishes "absent from the payload" from "explicitly null"
// from "set to a value". encoding/json never calls UnmarshalJSON for
// absent fields, so the zero value means absent.
type Optional[T any] struct {
	Set   bool // field appeared in the payload
	Valid bool // field was non-null
	Value T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Valid = false
		var zero T
		o.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// SomeOf builds a present, non-null Optional. Test helper and patch
// construction convenience.
func SomeOf[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// NullOf builds a present-but-null Optional.
func NullOf[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// TicketPatch carries a partial ticket update. Only fields present in the
// payload are applied; an explicit null on AssigneeID clears the assignee.
type TicketPatch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Status      Optional[string] `json:"status"`
	Priority    Optional[string] `json:"priority"`
	Type        Optional[string] `json:"type"`
	AssigneeID  Optional[int]    `json:"assignee_id"`
}

// Empty reports whether the patch touches nothing.
func (p TicketPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set &&
		!p.Priority.Set && !p.Type.Set && !p.AssigneeID.Set
}

// Fields lists the names of the fields the patch touches.
func (p TicketPatch) Fields() []string {
	var out []string
	if p.Title.Set {
		out = append(out, "title")
	}
	if p.Description.Set {
		out = append(out, "description")
	}
	if p.Status.Set {
		out = append(out, "status")
	}
	if p.Priority.Set {
		out = append(out, "priority")
	}
	if p.Type.Set {
		out = append(out, "type")
	}
	if p.AssigneeID.Set {
		out = append(out, "assignee_id")
	}
	return out
}
