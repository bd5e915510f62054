package sqlxrepos

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

const uniqueViolation = "23505"

// Store is the Postgres implementation of school.Store.
type Store struct {
	db   core.DB
	exec core.DBExecutor
}

var _ school.Store = (*Store)(nil) // interface compliance check

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, exec: db}
}

func (s *Store) Admins() school.StaffRepository {
	return &staffRepository{identityTable{exec: s.exec, table: "admins"}}
}

func (s *Store) Teachers() school.StaffRepository {
	return &staffRepository{identityTable{exec: s.exec, table: "teachers"}}
}

func (s *Store) Students() school.StudentRepository {
	return &studentRepository{identityTable{exec: s.exec, table: "students"}}
}

func (s *Store) Parents() school.ParentRepository {
	return &parentRepository{identityTable{exec: s.exec, table: "parents"}}
}

func (s *Store) Classes() school.ClassRepository {
	return &classRepository{exec: s.exec}
}

func (s *Store) Sequences() school.SequenceRepository {
	return &sequenceRepository{exec: s.exec}
}

// WithinTx runs fn in a transaction; a nested call joins the current one.
func (s *Store) WithinTx(ctx context.Context, fn func(tx school.Store) error) (err error) {
	if _, ok := s.exec.(core.DBTransactor); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&Store{db: s.db, exec: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps psql unique violations to school.ErrDuplicate
func trapUniqueErr(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.Wrap(school.ErrDuplicate, pqErr.Constraint)
	}
	return errors.Wrap(err, msg)
}

// codePattern matches the codes made of codePrefix and a number.
func codePattern(codePrefix string) string {
	return "^" + regexp.QuoteMeta(codePrefix) + "[0-9]+$"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
