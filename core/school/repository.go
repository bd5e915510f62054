package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrDuplicate = errors.New("duplicate key")
)

type (
	// StaffRepository stores the admins or the teachers.
	StaffRepository interface {
		user.IdentityStore

		CreateStaff(ctx context.Context, ident user.Identity) (user.Identity, error)
	}

	StudentRepository interface {
		user.IdentityStore

		CreateStudent(ctx context.Context, s Student) (Student, error)
		// LatestCodeWithPrefix returns the student code starting with prefix
		// of the most recently created student, or "" when there is none.
		LatestCodeWithPrefix(ctx context.Context, prefix string) (string, error)
	}

	ParentRepository interface {
		user.IdentityStore

		// FindParentByName matches name and surname exactly (case-sensitive).
		FindParentByName(ctx context.Context, name, surname string) (Parent, error)
		ParentsBySurname(ctx context.Context, surname string) ([]Parent, error)
		CreateParent(ctx context.Context, p Parent) (Parent, error)
	}

	ClassRepository interface {
		ClassExists(ctx context.Context, id int) (bool, error)
		GradeExists(ctx context.Context, id int) (bool, error)
		CreateClass(ctx context.Context, c Class) (Class, error)
		CreateGrade(ctx context.Context, g Grade) (Grade, error)
	}

	// SequenceRepository is an atomic per (prefix, year) counter.
	SequenceRepository interface {
		// NextSequence increments and returns the counter of (prefix, year),
		// seeding it from the existing student codes the first time.
		NextSequence(ctx context.Context, prefix string, year int) (int, error)
	}

	// Store groups the repositories that must change together.
	Store interface {
		Admins() StaffRepository
		Teachers() StaffRepository
		Students() StudentRepository
		Parents() ParentRepository
		Classes() ClassRepository
		Sequences() SequenceRepository

		// WithinTx runs fn with a Store whose writes are committed only when fn returns nil.
		WithinTx(ctx context.Context, fn func(tx Store) error) error
	}
)

// NewResolver returns a user.Resolver over the role stores of s.
func NewResolver(s Store) *user.Resolver {
	return user.NewResolver(map[user.Role]user.IdentityStore{
		user.RoleAdmin:   s.Admins(),
		user.RoleTeacher: s.Teachers(),
		user.RoleStudent: s.Students(),
		user.RoleParent:  s.Parents(),
	})
}
