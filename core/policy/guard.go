package policy

import "github.com/trezcool/shule/core"

// CanCreate decides whether caller may create a row of kind. Services must
// additionally force the new row's author/sender to the caller's own id;
// any author supplied in the payload is ignored, never trusted.
func CanCreate(c Caller, kind Kind) error {
	if c.IsAdmin() {
		return nil
	}

	switch kind {
	case KindGrade, KindHomework:
		if c.IsTeacher() {
			return nil
		}
	case KindMessage:
		// any authenticated role but eleve may send
		if !c.IsStudent() {
			return nil
		}
	}
	return core.ErrForbidden
}

// CanMutate decides whether caller may update or delete an existing row.
// Callers must have established visibility first (Scope.Contains); an
// invisible row is NotFound, not Forbidden.
func CanMutate(c Caller, action Action, row Row) error {
	if row.Kind == KindMessage {
		// messages are immutable once sent; the read flag has its own
		// rule (CanToggleRead) and hard removal is an admin concern
		if action == ActionDelete && c.IsAdmin() {
			return nil
		}
		return core.ErrForbidden
	}

	if c.IsAdmin() {
		return nil
	}

	switch row.Kind {
	case KindGrade, KindHomework, KindEvent:
		if c.IsTeacher() && row.AuthorID == c.ID {
			return nil
		}
	}
	return core.ErrForbidden
}

// CanToggleRead decides whether caller may flip a message's read flag:
// the recipient, and only the recipient.
func CanToggleRead(c Caller, row Row) error {
	if row.Kind == KindMessage && row.RecipientID == c.ID && !c.IsStudent() {
		return nil
	}
	return core.ErrForbidden
}
