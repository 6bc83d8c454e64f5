package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type Grade struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	AuthorID       string    `json:"author_id"`
	Subject        string    `json:"subject"`
	Score          float64   `json:"score"` // out of 20
	Coefficient    float64   `json:"coefficient"`
	EvaluationType string    `json:"evaluation_type,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

func (g Grade) Row() policy.Row {
	return policy.Row{Kind: policy.KindGrade, StudentID: g.StudentID, AuthorID: g.AuthorID}
}

// NewGrade contains information needed to record a new Grade.
// AuthorID is only honored for admins; professeurs are always recorded as
// the author themselves.
type NewGrade struct {
	StudentID      string  `json:"student_id" validate:"required,uuid4"`
	AuthorID       string  `json:"author_id" validate:"omitempty,uuid4"`
	Subject        string  `json:"subject" validate:"required"`
	Score          float64 `json:"score" validate:"gte=0,lte=20"`
	Coefficient    float64 `json:"coefficient" validate:"omitempty,gt=0"`
	EvaluationType string  `json:"evaluation_type"`
	Comment        string  `json:"comment"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Subject = core.CleanString(ng.Subject)
	ng.EvaluationType = core.CleanString(ng.EvaluationType, true /* lower */)
	ng.Comment = core.CleanString(ng.Comment)
	if ng.Coefficient == 0 {
		ng.Coefficient = 1
	}
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
// The student and author references are fixed at creation.
type UpdateGrade struct {
	Subject        string   `json:"subject"`
	Score          *float64 `json:"score" validate:"omitempty,gte=0,lte=20"`
	Coefficient    *float64 `json:"coefficient" validate:"omitempty,gt=0"`
	EvaluationType *string  `json:"evaluation_type"`
	Comment        *string  `json:"comment"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.Subject = core.CleanString(ug.Subject)
	return validate.Struct(ug)
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	Subject   string `query:"subject"`
}

func (qf *QueryFilter) Clean() {
	qf.Subject = core.CleanString(qf.Subject)
}
