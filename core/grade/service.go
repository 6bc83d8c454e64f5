package grade

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
		StudentIDs []string
		AuthorID   string
		Subject    string
	}

	Repository interface {
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		QueryGrades(ctx context.Context, filter RepoFilter, ordering []core.DBOrdering) ([]Grade, error)
		GetGrade(ctx context.Context, id string) (Grade, error)
		UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
		DeleteGradesByID(ctx context.Context, ids ...string) (int, error)
	}

	// UserDirectory is the slice of the user store needed for referential checks.
	UserDirectory interface {
		RoleOf(ctx context.Context, id string) (string, error)
	}

	Service struct {
		repo  Repository
		rel   policy.Relationships
		users UserDirectory
	}
)

func NewService(repo Repository, rel policy.Relationships, users UserDirectory) *Service {
	return &Service{
		repo:  repo,
		rel:   rel,
		users: users,
	}
}

func (svc *Service) Create(ctx context.Context, caller policy.Caller, ng NewGrade) (Grade, error) {
	if err := policy.CanCreate(caller, policy.KindGrade); err != nil {
		return Grade{}, err
	}
	if err := svc.checkStudent(ctx, ng.StudentID); err != nil {
		return Grade{}, err
	}

	// professeurs always author their own grades, whatever the payload says
	authorID := caller.ID
	if caller.IsAdmin() {
		if ng.AuthorID == "" {
			return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "author_id", Error: "author is required"})
		}
		if err := svc.checkAuthor(ctx, ng.AuthorID); err != nil {
			return Grade{}, err
		}
		authorID = ng.AuthorID
	}

	now := time.Now().UTC()
	grd := Grade{
		StudentID:      ng.StudentID,
		AuthorID:       authorID,
		Subject:        ng.Subject,
		Score:          ng.Score,
		Coefficient:    ng.Coefficient,
		EvaluationType: ng.EvaluationType,
		Comment:        ng.Comment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateGrade(ctx, grd)
}

func (svc *Service) Query(ctx context.Context, caller policy.Caller, filter QueryFilter, ordering []core.DBOrdering) ([]Grade, error) {
	scope, err := policy.ReadScope(ctx, caller, policy.KindGrade, svc.rel)
	if err != nil {
		return nil, errors.Wrap(err, "computing grade scope")
	}

	rf := RepoFilter{Subject: filter.Subject}
	switch {
	case scope.All:
		if filter.StudentID != "" {
			rf.StudentIDs = []string{filter.StudentID}
		}
	case scope.AuthorID != "":
		rf.AuthorID = scope.AuthorID
		if filter.StudentID != "" {
			rf.StudentIDs = []string{filter.StudentID}
		}
	case scope.StudentIDs != nil:
		if len(scope.StudentIDs) == 0 {
			return []Grade{}, nil
		}
		rf.StudentIDs = scope.StudentIDs
		if filter.StudentID != "" {
			if !contains(scope.StudentIDs, filter.StudentID) {
				return []Grade{}, nil
			}
			rf.StudentIDs = []string{filter.StudentID}
		}
	default:
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryGrades(ctx, rf, ordering)
}

func (svc *Service) GetByID(ctx context.Context, caller policy.Caller, id string) (Grade, error) {
	grd, err := svc.repo.GetGrade(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	scope, err := policy.ReadScope(ctx, caller, policy.KindGrade, svc.rel)
	if err != nil {
		return Grade{}, errors.Wrap(err, "computing grade scope")
	}
	if !scope.Contains(grd.Row()) {
		return Grade{}, core.ErrNotFound
	}
	return grd, nil
}

func (svc *Service) Update(ctx context.Context, caller policy.Caller, id string, ug UpdateGrade) (Grade, error) {
	grd, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return Grade{}, err
	}
	if err = policy.CanMutate(caller, policy.ActionUpdate, grd.Row()); err != nil {
		return Grade{}, err
	}

	if ug.Subject != "" {
		grd.Subject = ug.Subject
	}
	if ug.Score != nil {
		grd.Score = *ug.Score
	}
	if ug.Coefficient != nil {
		grd.Coefficient = *ug.Coefficient
	}
	if ug.EvaluationType != nil {
		grd.EvaluationType = core.CleanString(*ug.EvaluationType, true /* lower */)
	}
	if ug.Comment != nil {
		grd.Comment = core.CleanString(*ug.Comment)
	}
	grd.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGrade(ctx, grd)
}

func (svc *Service) Delete(ctx context.Context, caller policy.Caller, id string) error {
	grd, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return err
	}
	if err = policy.CanMutate(caller, policy.ActionDelete, grd.Row()); err != nil {
		return err
	}
	cnt, err := svc.repo.DeleteGradesByID(ctx, id)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (svc *Service) checkStudent(ctx context.Context, id string) error {
	role, err := svc.users.RoleOf(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return err
	}
	if role != policy.RoleStudent {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "referenced user is not an eleve"})
	}
	return nil
}

func (svc *Service) checkAuthor(ctx context.Context, id string) error {
	role, err := svc.users.RoleOf(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "author_id", Error: "author not found"})
		}
		return err
	}
	if role != policy.RoleTeacher {
		return core.NewValidationError(nil, core.FieldError{Field: "author_id", Error: "referenced user is not a professeur"})
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
