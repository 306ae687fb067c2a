package rbac

// Role constants. Every user carries exactly one global role.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleViewer    = "viewer"
)

// Action constants for everything the policy table governs.
const (
	ActionCreateProject    = "project:create"
	ActionDeleteProject    = "project:delete"
	ActionAddProjectMember = "project:add_member"
	ActionUpdateTicket     = "ticket:update"
	ActionAssignTicket     = "ticket:assign"
	ActionDeleteTicket     = "ticket:delete"
	ActionDeleteComment    = "comment:delete"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleDeveloper || role == RoleViewer
}

// Resource carries the target attributes a rule may test. Fields the
// action does not care about are left nil.
type Resource struct {
	OwnerID    *int // project owner
	AssigneeID *int // ticket assignee
	AuthorID   *int // comment author
}

// predicate tests the actor against the resource attributes.
type predicate func(actorID int, res Resource) bool

// rule is one cell of the policy table: whether the role may perform the
// action at all, and an optional ownership predicate evaluated afterwards.
// Role is always checked before ownership.
type rule struct {
	allow  bool
	owns   predicate
	reason string
}

func isOwner(actorID int, res Resource) bool {
	return res.OwnerID != nil && *res.OwnerID == actorID
}

func isAssignee(actorID int, res Resource) bool {
	return res.AssigneeID != nil && *res.AssigneeID == actorID
}

func isAuthor(actorID int, res Resource) bool {
	return res.AuthorID != nil && *res.AuthorID == actorID
}

// policy is the full action x role table. A missing role entry denies.
var policy = map[string]map[string]rule{
	ActionCreateProject: {
		RoleAdmin: {allow: true},
	},
	ActionDeleteProject: {
		RoleAdmin: {allow: true, owns: isOwner, reason: "only the project owner can delete the project"},
	},
	ActionAddProjectMember: {
		// Stricter than "any admin" on purpose: the admin must also own
		// the project.
		RoleAdmin: {allow: true, owns: isOwner, reason: "only project owner (admin) can add members"},
	},
	ActionUpdateTicket: {
		RoleAdmin:     {allow: true},
		RoleDeveloper: {allow: true, owns: isAssignee, reason: "developers can only update tickets assigned to them"},
	},
	ActionAssignTicket: {
		RoleAdmin: {allow: true},
	},
	ActionDeleteTicket: {
		RoleAdmin: {allow: true},
	},
	ActionDeleteComment: {
		RoleAdmin:     {allow: true},
		RoleDeveloper: {allow: true, owns: isAuthor, reason: "developers can only delete their own comments"},
	},
}

// defaultReasons are used when a role has no entry for the action.
var defaultReasons = map[string]string{
	ActionCreateProject:    "only admin can create projects",
	ActionDeleteProject:    "only admin can delete projects",
	ActionAddProjectMember: "only project owner (admin) can add members",
	ActionUpdateTicket:     "not allowed",
	ActionAssignTicket:     "only admin can assign tickets",
	ActionDeleteTicket:     "admin only",
	ActionDeleteComment:    "not allowed",
}

// Can reports whether the role may perform the action at all, ignoring
// ownership. Used where a disallowed attribute is dropped rather than
// rejected (assignee on ticket creation).
func Can(role, action string) bool {
	r, ok := policy[action][role]
	return ok && r.allow
}

// Decide runs the policy table for one actor/action/resource triple.
// Returns nil on allow, *PermissionDeniedError on deny.
func Decide(role string, actorID int, action string, res Resource) error {
	r, ok := policy[action][role]
	if !ok || !r.allow {
		return &PermissionDeniedError{Action: action, Reason: defaultReasons[action]}
	}
	if r.owns != nil && !r.owns(actorID, res) {
		return &PermissionDeniedError{Action: action, Reason: r.reason}
	}
	return nil
}

// PermissionDeniedError carries the denial reason surfaced to the caller.
type PermissionDeniedError struct {
	Action string
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "insufficient permissions"
}
