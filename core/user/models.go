package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

// Roles as exposed to clients.
var Roles = []Role{
	{Name: "Eleve", Value: policy.RoleStudent},
	{Name: "Parent", Value: policy.RoleParent},
	{Name: "Professeur", Value: policy.RoleTeacher},
	{Name: "Admin", Value: policy.RoleAdmin},
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ClassID      string    `json:"class_id,omitempty"`  // eleve & professeur only
	ParentID     string    `json:"parent_id,omitempty"` // eleve only
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == policy.RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == policy.RoleTeacher }
func (u User) IsParent() bool  { return u.Role == policy.RoleParent }
func (u User) IsStudent() bool { return u.Role == policy.RoleStudent }

// Caller returns the policy identity of this user, sourced from the stored
// record, never from client-supplied claims.
func (u User) Caller() policy.Caller {
	return policy.Caller{ID: u.ID, Role: u.Role}
}

func (u User) Row() policy.Row {
	return policy.Row{Kind: policy.KindUser, UserID: u.ID}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Surname         string `json:"surname" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
	ClassID         string `json:"class_id" validate:"omitempty,uuid4"`
	ParentID        string `json:"parent_id" validate:"omitempty,uuid4"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Surname = core.CleanString(nu.Surname)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if err := checkRefsAllowed(nu.Role, nu.ClassID, nu.ParentID); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string  `json:"name"`
	Surname         string  `json:"surname"`
	Email           string  `json:"email" validate:"omitempty,email"`
	Role            string  `json:"role" validate:"omitempty,role"`
	ClassID         *string `json:"class_id" validate:"omitempty,uuid4"`
	ParentID        *string `json:"parent_id" validate:"omitempty,uuid4"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if surname := core.CleanString(uu.Surname); surname != "" {
		uu.Surname = surname
	} else {
		uu.Surname = origUsr.Surname
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if uu.Role == "" {
		uu.Role = origUsr.Role
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}

	classID := origUsr.ClassID
	if uu.ClassID != nil {
		classID = *uu.ClassID
	}
	parentID := origUsr.ParentID
	if uu.ParentID != nil {
		parentID = *uu.ParentID
	}
	if err := checkRefsAllowed(uu.Role, classID, parentID); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(uu.Email, origUsr)
}

// checkRefsAllowed enforces which roles may carry class/parent references:
// class_id is for eleves and professeurs, parent_id for eleves only.
func checkRefsAllowed(role, classID, parentID string) error {
	if classID != "" && !(role == policy.RoleStudent || role == policy.RoleTeacher) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "class_id", Error: "only eleves and professeurs belong to a class",
		})
	}
	if parentID != "" && role != policy.RoleStudent {
		return core.NewValidationError(nil, core.FieldError{
			Field: "parent_id", Error: "only eleves have a parent",
		})
	}
	return nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	ClassID     string    `query:"class_id"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`

	// NoParent selects eleves without a linked parent; used by the
	// round-robin parent assignment.
	NoParent bool `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// GetFilter selects a single user by one criterion; ID wins when set.
type GetFilter struct {
	ID    string
	Email string
}
