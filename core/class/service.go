package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

var ErrNameExists = errors.New("a class with this name already exists")

type (
	Repository interface {
		CheckClassNameUniqueness(ctx context.Context, name string, excludedClasses ...Class) error
		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryClasses(ctx context.Context, ids []string, ordering []core.DBOrdering) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...string) (int, error)
		ClassExists(ctx context.Context, id string) (bool, error)
	}

	// Roster is the slice of the user store needed to list a class's eleves.
	Roster interface {
		QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	Service struct {
		repo   Repository
		rel    policy.Relationships
		roster Roster
	}
)

func NewService(repo Repository, rel policy.Relationships, roster Roster) *Service {
	return &Service{
		repo:   repo,
		rel:    rel,
		roster: roster,
	}
}

func (svc *Service) CheckNameUniqueness(name string, exclClasses ...Class) error {
	if err := svc.repo.CheckClassNameUniqueness(context.Background(), name, exclClasses...); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, caller policy.Caller, nc NewClass) (Class, error) {
	if err := policy.CanCreate(caller, policy.KindClass); err != nil {
		return Class{}, err
	}
	now := time.Now().UTC()
	cls := Class{
		Name:      nc.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) Query(ctx context.Context, caller policy.Caller, ordering []core.DBOrdering) ([]Class, error) {
	scope, err := policy.ReadScope(ctx, caller, policy.KindClass, svc.rel)
	if err != nil {
		return nil, errors.Wrap(err, "computing class scope")
	}
	switch {
	case scope.All:
		return svc.repo.QueryClasses(ctx, nil, ordering)
	case scope.ClassIDs != nil:
		if len(scope.ClassIDs) == 0 {
			return []Class{}, nil
		}
		return svc.repo.QueryClasses(ctx, scope.ClassIDs, ordering)
	default:
		return nil, core.ErrForbidden
	}
}

func (svc *Service) GetByID(ctx context.Context, caller policy.Caller, id string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	scope, err := policy.ReadScope(ctx, caller, policy.KindClass, svc.rel)
	if err != nil {
		return Class{}, errors.Wrap(err, "computing class scope")
	}
	if !scope.Contains(cls.Row()) {
		return Class{}, core.ErrNotFound
	}
	return cls, nil
}

// Students lists the eleves enrolled in a class the caller can see.
func (svc *Service) Students(ctx context.Context, caller policy.Caller, id string) ([]user.User, error) {
	if _, err := svc.GetByID(ctx, caller, id); err != nil {
		return nil, err
	}
	filter := &user.QueryFilter{Role: policy.RoleStudent, ClassID: id}
	return svc.roster.QueryUsers(ctx, filter, nil)
}

func (svc *Service) Update(ctx context.Context, caller policy.Caller, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return Class{}, err
	}
	if err = policy.CanMutate(caller, policy.ActionUpdate, cls.Row()); err != nil {
		return Class{}, err
	}
	cls.Name = uc.Name
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, caller policy.Caller, id string) error {
	cls, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return err
	}
	if err = policy.CanMutate(caller, policy.ActionDelete, cls.Row()); err != nil {
		return err
	}
	cnt, err := svc.repo.DeleteClassesByID(ctx, id)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ClassExists satisfies the directory interfaces of sibling services.
func (svc *Service) ClassExists(ctx context.Context, id string) (bool, error) {
	return svc.repo.ClassExists(ctx, id)
}
