package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

type staffRepository struct {
	s    *Store
	role user.Role
}

func (repo *staffRepository) table(t *tables) *[]user.Identity {
	if repo.role == user.RoleAdmin {
		return &t.admins
	}
	return &t.teachers
}

func (repo *staffRepository) FindIdentity(_ context.Context, key user.NaturalKey) (ident user.Identity, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, i := range *repo.table(t) {
			ok, err := matches(i, key)
			if err != nil {
				return err
			}
			if ok {
				ident = i
				return nil
			}
		}
		return user.ErrNotFound
	})
	return ident, err
}

func (repo *staffRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	return repo.s.write(func(t *tables) error {
		idents := *repo.table(t)
		for i := range idents {
			if idents[i].ID == id {
				idents[i].PasswordHash = hash
				return nil
			}
		}
		return user.ErrNotFound
	})
}

func (repo *staffRepository) CreateStaff(_ context.Context, ident user.Identity) (user.Identity, error) {
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	err := repo.s.write(func(t *tables) error {
		idents := repo.table(t)
		for _, i := range *idents {
			if conflicts(i, ident) {
				return errors.Wrap(school.ErrDuplicate, string(repo.role))
			}
		}
		*idents = append(*idents, ident)
		return nil
	})
	return ident, err
}

type studentRepository struct {
	s *Store
}

func (repo *studentRepository) FindIdentity(_ context.Context, key user.NaturalKey) (ident user.Identity, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, st := range t.students {
			ok, err := matches(st.Identity(), key)
			if err != nil {
				return err
			}
			if ok {
				ident = st.Identity()
				return nil
			}
		}
		return user.ErrNotFound
	})
	return ident, err
}

func (repo *studentRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	return repo.s.write(func(t *tables) error {
		for i := range t.students {
			if t.students[i].ID == id {
				t.students[i].PasswordHash = hash
				return nil
			}
		}
		return user.ErrNotFound
	})
}

func (repo *studentRepository) CreateStudent(_ context.Context, s school.Student) (school.Student, error) {
	err := repo.s.write(func(t *tables) error {
		for _, st := range t.students {
			if conflicts(st.Identity(), s.Identity()) || st.StudentCode == s.StudentCode {
				return errors.Wrap(school.ErrDuplicate, "students")
			}
		}
		t.students = append(t.students, s)
		return nil
	})
	return s, err
}

func (repo *studentRepository) LatestCodeWithPrefix(_ context.Context, prefix string) (code string, err error) {
	err = repo.s.read(func(t *tables) error {
		var latest *school.Student
		for i, st := range t.students {
			if !strings.HasPrefix(st.StudentCode, prefix) {
				continue
			}
			if latest == nil || !st.CreatedAt.Before(latest.CreatedAt) {
				latest = &t.students[i]
			}
		}
		if latest != nil {
			code = latest.StudentCode
		}
		return nil
	})
	return code, err
}

type parentRepository struct {
	s *Store
}

func (repo *parentRepository) FindIdentity(_ context.Context, key user.NaturalKey) (ident user.Identity, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, p := range t.parents {
			ok, err := matches(p.Identity(), key)
			if err != nil {
				return err
			}
			if ok {
				ident = p.Identity()
				return nil
			}
		}
		return user.ErrNotFound
	})
	return ident, err
}

func (repo *parentRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	return repo.s.write(func(t *tables) error {
		for i := range t.parents {
			if t.parents[i].ID == id {
				t.parents[i].PasswordHash = hash
				return nil
			}
		}
		return user.ErrNotFound
	})
}

func (repo *parentRepository) FindParentByName(_ context.Context, name, surname string) (parent school.Parent, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, p := range t.parents {
			if p.Name == name && p.Surname == surname {
				parent = p
				return nil
			}
		}
		return user.ErrNotFound
	})
	return parent, err
}

func (repo *parentRepository) ParentsBySurname(_ context.Context, surname string) (parents []school.Parent, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, p := range t.parents {
			if p.Surname == surname {
				parents = append(parents, p)
			}
		}
		return nil
	})
	return parents, err
}

func (repo *parentRepository) CreateParent(_ context.Context, p school.Parent) (school.Parent, error) {
	err := repo.s.write(func(t *tables) error {
		for _, existing := range t.parents {
			if conflicts(existing.Identity(), p.Identity()) {
				return errors.Wrap(school.ErrDuplicate, "parents")
			}
		}
		t.parents = append(t.parents, p)
		return nil
	})
	return p, err
}

type classRepository struct {
	s *Store
}

func (repo *classRepository) ClassExists(_ context.Context, id int) (ok bool, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, c := range t.classes {
			if c.ID == id {
				ok = true
			}
		}
		return nil
	})
	return ok, err
}

func (repo *classRepository) GradeExists(_ context.Context, id int) (ok bool, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, g := range t.grades {
			if g.ID == id {
				ok = true
			}
		}
		return nil
	})
	return ok, err
}

func (repo *classRepository) CreateClass(_ context.Context, c school.Class) (school.Class, error) {
	err := repo.s.write(func(t *tables) error {
		c.ID = len(t.classes) + 1
		t.classes = append(t.classes, c)
		return nil
	})
	return c, err
}

func (repo *classRepository) CreateGrade(_ context.Context, g school.Grade) (school.Grade, error) {
	err := repo.s.write(func(t *tables) error {
		g.ID = len(t.grades) + 1
		t.grades = append(t.grades, g)
		return nil
	})
	return g, err
}

type sequenceRepository struct {
	s *Store
}

func (repo *sequenceRepository) NextSequence(_ context.Context, prefix string, year int) (n int, err error) {
	err = repo.s.write(func(t *tables) error {
		key := seqKey{prefix: prefix, year: year}
		last, ok := t.sequences[key]
		if !ok {
			codePrefix := school.CodePrefix(prefix, year)
			for _, st := range t.students {
				if sn, err := school.ParseCodeSuffix(st.StudentCode, codePrefix); err == nil && sn > last {
					last = sn
				}
			}
		}
		n = last + 1
		t.sequences[key] = n
		return nil
	})
	return n, err
}

// AllStudents returns every student, oldest first.
func (s *Store) AllStudents() (students []school.Student) {
	_ = s.read(func(t *tables) error {
		students = append(students, t.students...)
		return nil
	})
	sort.SliceStable(students, func(i, j int) bool { return students[i].CreatedAt.Before(students[j].CreatedAt) })
	return students
}

// AllParents returns every parent, in creation order.
func (s *Store) AllParents() (parents []school.Parent) {
	_ = s.read(func(t *tables) error {
		parents = append(parents, t.parents...)
		return nil
	})
	return parents
}
