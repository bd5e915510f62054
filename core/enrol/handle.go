package enrol

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/user"
)

// UniqueHandle returns base if no identity of store uses it as username,
// else the first free one of base1, base2, ...
func UniqueHandle(ctx context.Context, store user.IdentityStore, base string) (string, error) {
	handle := base
	for n := 1; ; n++ {
		_, err := store.FindIdentity(ctx, user.NaturalKey{Username: handle})
		if errors.Cause(err) == user.ErrNotFound {
			return handle, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "checking handle")
		}
		handle = base + strconv.Itoa(n)
	}
}

// guardianHandle is the lower-cased concatenation of name and surname, without whitespace.
func guardianHandle(name, surname string) string {
	return strings.ToLower(strings.Join(strings.Fields(name+surname), ""))
}
