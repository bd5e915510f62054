package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/school"
)

type classRepository struct {
	exec core.DBExecutor
}

func (repo classRepository) exists(ctx context.Context, table string, id int) (bool, error) {
	var ok bool
	q := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE id = $1)`
	if err := sqlx.GetContext(ctx, repo.exec, &ok, q, id); err != nil {
		return false, errors.Wrap(err, "checking "+table)
	}
	return ok, nil
}

func (repo classRepository) ClassExists(ctx context.Context, id int) (bool, error) {
	return repo.exists(ctx, "classes", id)
}

func (repo classRepository) GradeExists(ctx context.Context, id int) (bool, error) {
	return repo.exists(ctx, "grades", id)
}

func (repo classRepository) CreateClass(ctx context.Context, c school.Class) (school.Class, error) {
	if err := sqlx.GetContext(ctx, repo.exec, &c.ID, `INSERT INTO classes (name) VALUES ($1) RETURNING id`, c.Name); err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo classRepository) CreateGrade(ctx context.Context, g school.Grade) (school.Grade, error) {
	if err := sqlx.GetContext(ctx, repo.exec, &g.ID, `INSERT INTO grades (name) VALUES ($1) RETURNING id`, g.Name); err != nil {
		return school.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return g, nil
}

type sequenceRepository struct {
	exec core.DBExecutor
}

// NextSequence seeds a new (prefix, year) counter with the highest existing student code.
func (repo sequenceRepository) NextSequence(ctx context.Context, prefix string, year int) (int, error) {
	var n int
	q := `INSERT INTO id_sequences (prefix, year, last_value)
		SELECT $1, $2, COALESCE(MAX(CAST(SUBSTRING(student_code FROM $3::int) AS INTEGER)), 0) + 1
		FROM students WHERE student_code ~ $4
		ON CONFLICT (prefix, year) DO UPDATE SET last_value = id_sequences.last_value + 1
		RETURNING last_value`
	codePrefix := school.CodePrefix(prefix, year)
	if err := sqlx.GetContext(ctx, repo.exec, &n, q, prefix, year, len(codePrefix)+1, codePattern(codePrefix)); err != nil {
		return 0, errors.Wrap(err, "incrementing sequence")
	}
	return n, nil
}
