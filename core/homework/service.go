package homework

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type (
	// RepoFilter is the storage-level selection; services derive it from the
	// caller's scope plus the request filter.
	RepoFilter struct {
		ClassIDs []string
		AuthorID string
		Subject  string
	}

	Repository interface {
		CreateHomework(ctx context.Context, hw Homework) (Homework, error)
		QueryHomework(ctx context.Context, filter RepoFilter, ordering []core.DBOrdering) ([]Homework, error)
		GetHomework(ctx context.Context, id string) (Homework, error)
		UpdateHomework(ctx context.Context, hw Homework) (Homework, error)
		DeleteHomeworkByID(ctx context.Context, ids ...string) (int, error)
	}

	// ClassDirectory is the slice of the class store needed for referential checks.
	ClassDirectory interface {
		ClassExists(ctx context.Context, id string) (bool, error)
	}

	// UserDirectory is the slice of the user store needed for referential checks.
	UserDirectory interface {
		RoleOf(ctx context.Context, id string) (string, error)
	}

	Service struct {
		repo    Repository
		rel     policy.Relationships
		classes ClassDirectory
		users   UserDirectory
	}
)

func NewService(repo Repository, rel policy.Relationships, classes ClassDirectory, users UserDirectory) *Service {
	return &Service{
		repo:    repo,
		rel:     rel,
		classes: classes,
		users:   users,
	}
}

func (svc *Service) Create(ctx context.Context, caller policy.Caller, nh NewHomework) (Homework, error) {
	if err := policy.CanCreate(caller, policy.KindHomework); err != nil {
		return Homework{}, err
	}
	exists, err := svc.classes.ClassExists(ctx, nh.ClassID)
	if err != nil {
		return Homework{}, err
	}
	if !exists {
		return Homework{}, core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class not found"})
	}

	// professeurs always author their own homework, whatever the payload says
	authorID := caller.ID
	if caller.IsAdmin() {
		if nh.AuthorID == "" {
			return Homework{}, core.NewValidationError(nil, core.FieldError{Field: "author_id", Error: "author is required"})
		}
		role, err := svc.users.RoleOf(ctx, nh.AuthorID)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return Homework{}, core.NewValidationError(nil, core.FieldError{Field: "author_id", Error: "author not found"})
			}
			return Homework{}, err
		}
		if role != policy.RoleTeacher {
			return Homework{}, core.NewValidationError(nil, core.FieldError{Field: "author_id", Error: "referenced user is not a professeur"})
		}
		authorID = nh.AuthorID
	}

	now := time.Now().UTC()
	hw := Homework{
		ClassID:     nh.ClassID,
		AuthorID:    authorID,
		Title:       nh.Title,
		Description: nh.Description,
		Subject:     nh.Subject,
		DueAt:       nh.DueAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateHomework(ctx, hw)
}

func (svc *Service) Query(ctx context.Context, caller policy.Caller, filter QueryFilter, ordering []core.DBOrdering) ([]Homework, error) {
	scope, err := policy.ReadScope(ctx, caller, policy.KindHomework, svc.rel)
	if err != nil {
		return nil, errors.Wrap(err, "computing homework scope")
	}

	rf := RepoFilter{Subject: filter.Subject}
	switch {
	case scope.All:
		if filter.ClassID != "" {
			rf.ClassIDs = []string{filter.ClassID}
		}
		if filter.Mine && caller.IsTeacher() {
			rf.AuthorID = caller.ID
		}
	case scope.ClassIDs != nil:
		if len(scope.ClassIDs) == 0 {
			return []Homework{}, nil
		}
		rf.ClassIDs = scope.ClassIDs
		if filter.ClassID != "" {
			if !contains(scope.ClassIDs, filter.ClassID) {
				return []Homework{}, nil
			}
			rf.ClassIDs = []string{filter.ClassID}
		}
	default:
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryHomework(ctx, rf, ordering)
}

func (svc *Service) GetByID(ctx context.Context, caller policy.Caller, id string) (Homework, error) {
	hw, err := svc.repo.GetHomework(ctx, id)
	if err != nil {
		return Homework{}, err
	}
	scope, err := policy.ReadScope(ctx, caller, policy.KindHomework, svc.rel)
	if err != nil {
		return Homework{}, errors.Wrap(err, "computing homework scope")
	}
	if !scope.Contains(hw.Row()) {
		return Homework{}, core.ErrNotFound
	}
	return hw, nil
}

func (svc *Service) Update(ctx context.Context, caller policy.Caller, id string, uh UpdateHomework) (Homework, error) {
	hw, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return Homework{}, err
	}
	if err = policy.CanMutate(caller, policy.ActionUpdate, hw.Row()); err != nil {
		return Homework{}, err
	}

	if uh.Title != "" {
		hw.Title = uh.Title
	}
	if uh.Description != nil {
		hw.Description = core.CleanString(*uh.Description)
	}
	if uh.Subject != nil {
		hw.Subject = core.CleanString(*uh.Subject)
	}
	if uh.DueAt != nil {
		hw.DueAt = uh.DueAt.UTC()
	}
	hw.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateHomework(ctx, hw)
}

func (svc *Service) Delete(ctx context.Context, caller policy.Caller, id string) error {
	hw, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return err
	}
	if err = policy.CanMutate(caller, policy.ActionDelete, hw.Row()); err != nil {
		return err
	}
	cnt, err := svc.repo.DeleteHomeworkByID(ctx, id)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return core.ErrNotFound
	}
	return nil
}

func contains(vals []string, v string) bool {
	for _, val := range vals {
		if val == v {
			return true
		}
	}
	return false
}
