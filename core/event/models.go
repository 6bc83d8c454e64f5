package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type Event struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at"`           // UTC
	EndsAt      time.Time `json:"ends_at,omitempty"`   // UTC
	CreatedAt   time.Time `json:"created_at"`          // UTC
	UpdatedAt   time.Time `json:"updated_at"`          // UTC
}

func (e Event) Row() policy.Row {
	return policy.Row{Kind: policy.KindEvent, AuthorID: e.AuthorID}
}

// NewEvent contains information needed to publish a new Event.
type NewEvent struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"omitempty,gtfield=StartsAt"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	return validate.Struct(ne)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanString(ue.Title)
	return validate.Struct(ue)
}

type QueryFilter struct {
	From time.Time `query:"from"`
	To   time.Time `query:"to"`
}
