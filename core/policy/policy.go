// Package policy holds the role-scoped authorization model shared by every
// resource: who the caller is, which rows they may read and which mutations
// they may perform. All functions are stateless per-request decisions; the
// only I/O happens behind the Relationships interface.
package policy

import "context"

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "professeur"
	RoleParent  = "parent"
	RoleStudent = "eleve"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleParent, RoleStudent}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Caller is the authenticated identity making a request. Role is always the
// stored role, re-read from the user record on every request; a
// client-asserted role never reaches here.
type Caller struct {
	ID   string
	Role string
}

func (c Caller) IsAdmin() bool   { return c.Role == RoleAdmin }
func (c Caller) IsTeacher() bool { return c.Role == RoleTeacher }
func (c Caller) IsParent() bool  { return c.Role == RoleParent }
func (c Caller) IsStudent() bool { return c.Role == RoleStudent }

// Resource kinds
type Kind string

const (
	KindUser     Kind = "user"
	KindClass    Kind = "class"
	KindGrade    Kind = "grade"
	KindHomework Kind = "homework"
	KindEvent    Kind = "event"
	KindMessage  Kind = "message"
)

// Mutations
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Row carries the ownership fields of an existing row; only the fields
// meaningful for its Kind are set.
type Row struct {
	Kind        Kind
	UserID      string // user rows: the row's own ID
	AuthorID    string
	StudentID   string
	ClassID     string
	SenderID    string
	RecipientID string
}

// Relationships is the parent↔child / user↔class index every filter
// consults. Implementations must answer with indexed lookups.
type Relationships interface {
	// ChildrenOf returns the IDs of all users whose parent is parentID.
	ChildrenOf(ctx context.Context, parentID string) ([]string, error)
	// ClassOf returns the class a student belongs to, or the class a
	// teacher is assigned to; "" when none.
	ClassOf(ctx context.Context, userID string) (string, error)
}

// Scope is the computed read-visibility of a caller over one resource kind.
// All short-circuits everything else; None denies listing outright. The
// remaining fields are union criteria: a row is visible when any applicable
// one matches. Empty StudentIDs/ClassIDs (non-nil) legitimately match
// nothing, e.g. a parent with no linked children.
type Scope struct {
	All  bool
	None bool

	AuthorID   string
	StudentIDs []string
	ClassIDs   []string
	PartyID    string // messages: caller must be sender or recipient
	SelfID     string // user rows: own record
}

// ReadScope computes the visibility of caller over kind. The policy table:
//
//	           admin  professeur        parent               eleve
//	Grade      all    authored          children's           own
//	Homework   all    all               children's classes   own class
//	Event      all    all               all                  all
//	Message    all    own in/outbox     own in/outbox        denied
//	User       all    none              none                 none (self only)
//	Class      all    own class         none                 none
func ReadScope(ctx context.Context, c Caller, kind Kind, rel Relationships) (Scope, error) {
	// most permissive rule wins; admin short-circuits all other checks
	if c.IsAdmin() {
		return Scope{All: true}, nil
	}

	switch kind {
	case KindGrade:
		switch {
		case c.IsTeacher():
			return Scope{AuthorID: c.ID}, nil
		case c.IsParent():
			children, err := rel.ChildrenOf(ctx, c.ID)
			if err != nil {
				return Scope{}, err
			}
			return Scope{StudentIDs: nonNil(children)}, nil
		default: // eleve
			return Scope{StudentIDs: []string{c.ID}}, nil
		}

	case KindHomework:
		switch {
		case c.IsTeacher():
			return Scope{All: true}, nil
		case c.IsParent():
			children, err := rel.ChildrenOf(ctx, c.ID)
			if err != nil {
				return Scope{}, err
			}
			classes := make([]string, 0, len(children))
			seen := make(map[string]bool, len(children))
			for _, child := range children {
				classID, err := rel.ClassOf(ctx, child)
				if err != nil {
					return Scope{}, err
				}
				if classID != "" && !seen[classID] {
					seen[classID] = true
					classes = append(classes, classID)
				}
			}
			return Scope{ClassIDs: classes}, nil
		default: // eleve
			classID, err := rel.ClassOf(ctx, c.ID)
			if err != nil {
				return Scope{}, err
			}
			if classID == "" {
				return Scope{ClassIDs: []string{}}, nil
			}
			return Scope{ClassIDs: []string{classID}}, nil
		}

	case KindEvent:
		return Scope{All: true}, nil

	case KindMessage:
		if c.IsStudent() {
			// messaging is disabled for eleves; the frontend hides the
			// tab but the denial is enforced here too
			return Scope{None: true}, nil
		}
		return Scope{PartyID: c.ID}, nil

	case KindUser:
		return Scope{None: true, SelfID: c.ID}, nil

	case KindClass:
		if c.IsTeacher() {
			classID, err := rel.ClassOf(ctx, c.ID)
			if err != nil {
				return Scope{}, err
			}
			if classID == "" {
				return Scope{ClassIDs: []string{}}, nil
			}
			return Scope{ClassIDs: []string{classID}}, nil
		}
		return Scope{None: true}, nil
	}

	return Scope{None: true}, nil
}

// Contains reports whether a single row falls inside the scope. Used for
// get/update/delete visibility checks; a miss must surface as NotFound,
// never Forbidden.
func (s Scope) Contains(r Row) bool {
	if s.All {
		return true
	}
	if s.AuthorID != "" && r.AuthorID == s.AuthorID {
		return true
	}
	for _, id := range s.StudentIDs {
		if id != "" && r.StudentID == id {
			return true
		}
	}
	for _, id := range s.ClassIDs {
		if id != "" && r.ClassID == id {
			return true
		}
	}
	if s.PartyID != "" && (r.SenderID == s.PartyID || r.RecipientID == s.PartyID) {
		return true
	}
	if s.SelfID != "" && r.UserID == s.SelfID {
		return true
	}
	return false
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
