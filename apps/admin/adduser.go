package main

import (
	"context"
	"strings"

	"github.com/trezcool/tathmini/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = strings.ToLower(strings.TrimSpace(uname))
	email = strings.ToLower(strings.TrimSpace(email))

	var roles []string
	if isAdmin {
		roles = user.AllRoles
	}

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		// the service checks username/email uniqueness
		_, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:            uname,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
		return err
	}

	if isAdmin {
		usr.Roles = roles
	}
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
