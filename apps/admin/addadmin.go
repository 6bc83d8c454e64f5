package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

// addAdmin updates or creates an admin user.User
func (cli *commandLine) addAdmin(name, surname, email, pwd string) error {
	var usr user.User
	var err error
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email}); err != nil {
		if errors.Cause(err) != core.ErrNotFound {
			return err
		}
		usr = user.User{
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
	}
	usr.Name = core.CleanString(name)
	usr.Surname = core.CleanString(surname)
	usr.Role = policy.RoleAdmin
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
