package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c Class) Row() policy.Row {
	return policy.Row{Kind: policy.KindClass, ClassID: c.ID}
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name string `json:"name" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(nc.Name)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name string `json:"name"`
}

func (uc *UpdateClass) Validate(origCls Class, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = origCls.Name
	}
	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(uc.Name, origCls)
}
