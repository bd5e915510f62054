package enrol

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

const (
	placeholderPhoneLen  = 10
	similarGuardianRatio = 0.8
)

type guardianKey struct {
	name    string
	surname string
}

// resolveGuardian finds or creates the parent of row inside tx.
// created is true when a new parent was written.
func (o *Orchestrator) resolveGuardian(ctx context.Context, tx school.Store, b *batch, row ValidatedRow) (id string, created bool, err error) {
	key := guardianKey{name: row.ParentName, surname: row.ParentSurname}
	if id, ok := b.guardians[key]; ok {
		return id, false, nil
	}

	parents := tx.Parents()
	existing, err := parents.FindParentByName(ctx, key.name, key.surname)
	switch {
	case err == nil:
		return existing.ID, false, nil
	case errors.Cause(err) != user.ErrNotFound:
		return "", false, errors.Wrap(err, "finding parent")
	}

	o.warnSimilarGuardians(ctx, parents, key)

	handle, err := UniqueHandle(ctx, parents, guardianHandle(key.name, key.surname))
	if err != nil {
		return "", false, err
	}
	phone, err := placeholderPhone(ctx, school.NewResolver(tx), row.Phone)
	if err != nil {
		return "", false, err
	}
	hash, err := o.hash(o.conf.DefaultPassword)
	if err != nil {
		return "", false, errors.Wrap(err, "hashing password")
	}

	parent, err := parents.CreateParent(ctx, school.Parent{
		ID:           uuid.New().String(),
		Username:     handle,
		Name:         key.name,
		Surname:      key.surname,
		Email:        null.String{},
		Phone:        phone,
		Address:      row.Address,
		PasswordHash: hash,
		CreatedAt:    NowFunc().UTC(),
	})
	if err != nil {
		return "", false, errors.Wrap(err, "creating parent")
	}
	return parent.ID, true, nil
}

// placeholderPhone derives a phone number from the clock that no identity uses
// and that differs from reserved, the phone of the student being written.
func placeholderPhone(ctx context.Context, resolver *user.Resolver, reserved string) (string, error) {
	n := NowFunc().UnixNano()
	for ; ; n++ {
		phone := lastDigits(n, placeholderPhoneLen)
		if phone == reserved {
			continue
		}
		taken, err := resolver.Exists(ctx, user.NaturalKey{Phone: phone})
		if err != nil {
			return "", errors.Wrap(err, "checking phone")
		}
		if !taken {
			return phone, nil
		}
	}
}

func lastDigits(n int64, size int) string {
	s := strconv.FormatInt(n, 10)
	if len(s) > size {
		return s[len(s)-size:]
	}
	return strings.Repeat("0", size-len(s)) + s
}

// warnSimilarGuardians logs the existing parents with the same surname whose
// name closely resembles key.name; they are probably the same person.
func (o *Orchestrator) warnSimilarGuardians(ctx context.Context, parents school.ParentRepository, key guardianKey) {
	homonyms, err := parents.ParentsBySurname(ctx, key.surname)
	if err != nil {
		o.logger.Warn("listing parents by surname", err)
		return
	}
	for _, p := range homonyms {
		if ratio := nameRatio(p.Name, key.name); ratio >= similarGuardianRatio {
			o.logger.Warn(fmt.Sprintf(
				"new parent %q resembles existing parent %q (%s, ratio %.2f)",
				key.name+" "+key.surname, p.FullName(), p.Username, ratio,
			))
		}
	}
}

func nameRatio(a, b string) float64 {
	split := func(s string) []string { return strings.Split(strings.ToLower(s), "") }
	return difflib.NewMatcher(split(a), split(b)).Ratio()
}
