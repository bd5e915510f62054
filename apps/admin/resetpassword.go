package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, roleName, login, pwd string) error {
	resolver := school.NewResolver(cli.store)
	key := user.NaturalKey{UsernameOrEmail: login}

	var (
		ident user.Identity
		err   error
	)
	if roleName == "" {
		ident, err = resolver.FindAny(ctx, key)
	} else {
		role, ok := user.ParseRole(roleName)
		if !ok {
			return user.ErrUnknownRole
		}
		ident, err = resolver.Find(ctx, role, key)
	}
	if err != nil {
		return err
	}

	hash, err := user.HashPassword(pwd)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	store, err := resolver.Store(ident.Role)
	if err != nil {
		return err
	}
	if err = store.UpdatePassword(ctx, ident.ID, hash); err != nil {
		return errors.Wrap(err, "updating password")
	}
	cli.logger.Info("password reset", ident)
	return nil
}
