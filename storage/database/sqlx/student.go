package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/school"
)

var latestFirst = core.DBOrdering{Field: "created_at"}

const studentColumns = identityColumns +
	", address, blood_type, sex, birthday, parent_id, class_id, grade_id, student_code"

type studentRow struct {
	identityRow

	Address     string      `db:"address"`
	BloodType   string      `db:"blood_type"`
	Sex         string      `db:"sex"`
	Birthday    time.Time   `db:"birthday"`
	ParentID    null.String `db:"parent_id"`
	ClassID     int         `db:"class_id"`
	GradeID     int         `db:"grade_id"`
	StudentCode string      `db:"student_code"`
}

type studentRepository struct {
	identityTable
}

func (repo studentRepository) CreateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	row := studentRow{
		identityRow: identityRow{
			ID:           s.ID,
			Username:     s.Username,
			Email:        s.Email,
			Phone:        s.Phone,
			Name:         s.Name,
			Surname:      s.Surname,
			PasswordHash: s.PasswordHash,
			CreatedAt:    s.CreatedAt.UTC(),
		},
		Address:     s.Address,
		BloodType:   s.BloodType,
		Sex:         s.Sex,
		Birthday:    s.Birthday,
		ParentID:    s.ParentID,
		ClassID:     s.ClassID,
		GradeID:     s.GradeID,
		StudentCode: s.StudentCode,
	}
	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:id, :username, :email, :phone, :name, :surname, :password_hash, :created_at,
			:address, :blood_type, :sex, :birthday, :parent_id, :class_id, :grade_id, :student_code)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, row); err != nil {
		return school.Student{}, trapUniqueErr(err, "inserting student")
	}
	s.CreatedAt = row.CreatedAt
	return s, nil
}

func (repo studentRepository) LatestCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var codes []string
	q := `SELECT student_code FROM students WHERE student_code LIKE $1 ORDER BY ` + latestFirst.String() + ` LIMIT 1`
	if err := sqlx.SelectContext(ctx, repo.exec, &codes, q, likePrefix(prefix)); err != nil {
		return "", trapNoRowsErr(err, "selecting latest student code")
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}
