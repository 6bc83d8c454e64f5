package homework

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type Homework struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	DueAt       time.Time `json:"due_at"`      // UTC
	CreatedAt   time.Time `json:"created_at"`  // UTC
	UpdatedAt   time.Time `json:"updated_at"`  // UTC
}

func (h Homework) Row() policy.Row {
	return policy.Row{Kind: policy.KindHomework, AuthorID: h.AuthorID, ClassID: h.ClassID}
}

// NewHomework contains information needed to post a new Homework.
// AuthorID is only honored for admins; professeurs are always recorded as
// the author themselves.
type NewHomework struct {
	ClassID     string    `json:"class_id" validate:"required,uuid4"`
	AuthorID    string    `json:"author_id" validate:"omitempty,uuid4"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	DueAt       time.Time `json:"due_at" validate:"required"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.Title = core.CleanString(nh.Title)
	nh.Description = core.CleanString(nh.Description)
	nh.Subject = core.CleanString(nh.Subject)
	return validate.Struct(nh)
}

// UpdateHomework defines what information may be provided to modify an
// existing Homework. The class and author references are fixed at creation.
type UpdateHomework struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Subject     *string    `json:"subject"`
	DueAt       *time.Time `json:"due_at"`
}

func (uh *UpdateHomework) Validate(validate *validator.Validate) error {
	uh.Title = core.CleanString(uh.Title)
	return validate.Struct(uh)
}

type QueryFilter struct {
	ClassID string `query:"class_id"`
	Subject string `query:"subject"`

	// Mine restricts results to homework authored by the caller; the
	// professeur "my assignments" view.
	Mine bool `query:"mine"`
}

func (qf *QueryFilter) Clean() {
	qf.Subject = core.CleanString(qf.Subject)
}
