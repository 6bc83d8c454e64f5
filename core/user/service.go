package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

var ErrEmailExists = errors.New("a user with this email already exists")

type (
	Repository interface {
		policy.Relationships

		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	// ClassDirectory is the slice of the class store this service needs
	// for referential checks.
	ClassDirectory interface {
		ClassExists(ctx context.Context, id string) (bool, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, exclUsers ...User) error
		Resolve(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Create(ctx context.Context, caller policy.Caller, nu NewUser) (User, error)
		Query(ctx context.Context, caller policy.Caller, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, caller policy.Caller, id string) (User, error)
		Update(ctx context.Context, caller policy.Caller, id string, uu UpdateUser) (User, error)
		Delete(ctx context.Context, caller policy.Caller, id string) error
		DeleteMultiple(ctx context.Context, caller policy.Caller, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	Service struct {
		repo    Repository
		classes ClassDirectory
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, classes ClassDirectory, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		classes: classes,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// Relationships exposes the parent↔child / user↔class index backing the
// visibility filters.
func (svc *Service) Relationships() policy.Relationships { return svc.repo }

func (svc *Service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Resolve re-reads the caller's user record from storage. Token claims are
// only a pointer to the record; the stored role is authoritative.
func (svc *Service) Resolve(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, core.ErrUnauthenticated
		}
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, core.ErrUnauthenticated
	}
	return usr, nil
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Create(ctx context.Context, caller policy.Caller, nu NewUser) (User, error) {
	if err := policy.CanCreate(caller, policy.KindUser); err != nil {
		return User{}, err
	}
	if err := svc.checkRefs(ctx, nu.ClassID, nu.ParentID); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Surname:   nu.Surname,
		Email:     nu.Email,
		Role:      nu.Role,
		ClassID:   nu.ClassID,
		ParentID:  nu.ParentID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, caller policy.Caller, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	scope, err := policy.ReadScope(ctx, caller, policy.KindUser, svc.repo)
	if err != nil {
		return nil, errors.Wrap(err, "computing user scope")
	}
	if !scope.All {
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, caller policy.Caller, id string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	scope, err := policy.ReadScope(ctx, caller, policy.KindUser, svc.repo)
	if err != nil {
		return User{}, errors.Wrap(err, "computing user scope")
	}
	if !scope.Contains(usr.Row()) {
		return User{}, core.ErrNotFound
	}
	return usr, nil
}

func (svc *Service) Update(ctx context.Context, caller policy.Caller, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return User{}, err
	}
	if err = policy.CanMutate(caller, policy.ActionUpdate, usr.Row()); err != nil {
		return User{}, err
	}
	if err = svc.checkRefs(ctx, derefOr(uu.ClassID, usr.ClassID), derefOr(uu.ParentID, usr.ParentID)); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Surname = uu.Surname
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.ClassID != nil {
		usr.ClassID = *uu.ClassID
	}
	if uu.ParentID != nil {
		usr.ParentID = *uu.ParentID
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, caller policy.Caller, id string) error {
	usr, err := svc.GetByID(ctx, caller, id)
	if err != nil {
		return err
	}
	if err = policy.CanMutate(caller, policy.ActionDelete, usr.Row()); err != nil {
		return err
	}
	cnt, err := svc.repo.DeleteUsersByID(ctx, id)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (svc *Service) DeleteMultiple(ctx context.Context, caller policy.Caller, ids ...string) error {
	if !caller.IsAdmin() {
		return core.ErrForbidden
	}
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := MakeToken(svc.conf, usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	url := fmt.Sprintf("%s/password-reset?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name + " " + usr.Surname, Address: usr.Email}},
		Subject: "Password Reset",
		BodyStr: "You requested a password reset. Follow this link to choose a new password: " + url,
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errors.New("invalid uid"))
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: uid})
	if err != nil {
		return err
	}
	if err = verifyToken(svc.conf, usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// checkRefs verifies referenced rows exist and carry the right role.
func (svc *Service) checkRefs(ctx context.Context, classID, parentID string) error {
	if parentID != "" {
		parent, err := svc.repo.GetUser(ctx, GetFilter{ID: parentID})
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "parent_id", Error: "parent not found"})
			}
			return err
		}
		if !parent.IsParent() {
			return core.NewValidationError(nil, core.FieldError{Field: "parent_id", Error: "referenced user is not a parent"})
		}
	}
	if classID != "" && svc.classes != nil {
		exists, err := svc.classes.ClassExists(ctx, classID)
		if err != nil {
			return err
		}
		if !exists {
			return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class not found"})
		}
	}
	return nil
}

func derefOr(val *string, fallback string) string {
	if val != nil {
		return *val
	}
	return fallback
}
