package main

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrol"
	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

// addUser creates an admin or a teacher.
func (cli *commandLine) addUser(ctx context.Context, roleName string, ident user.Identity, pwd string) error {
	var repo school.StaffRepository
	switch role, _ := user.ParseRole(roleName); role {
	case user.RoleAdmin:
		repo = cli.store.Admins()
	case user.RoleTeacher:
		repo = cli.store.Teachers()
	default:
		return user.ErrUnknownRole
	}

	ident.Username = core.CleanString(ident.Username, true /* lower */)
	ident.Email = core.CleanString(ident.Email, true /* lower */)
	ident.CreatedAt = enrol.NowFunc().UTC()
	if err := ident.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := repo.CreateStaff(ctx, ident); err != nil {
		return err
	}
	return nil
}
