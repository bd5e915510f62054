package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/campus/core/school"
)

const parentColumns = identityColumns + ", address"

type parentRow struct {
	identityRow

	Address string `db:"address"`
}

func (r parentRow) parent() school.Parent {
	return school.Parent{
		ID:           r.ID,
		Username:     r.Username,
		Name:         r.Name,
		Surname:      r.Surname,
		Email:        r.Email,
		Phone:        r.Phone.String,
		Address:      r.Address,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type parentRepository struct {
	identityTable
}

func (repo parentRepository) FindParentByName(ctx context.Context, name, surname string) (school.Parent, error) {
	var row parentRow
	q := `SELECT ` + parentColumns + ` FROM parents WHERE name = $1 AND surname = $2 ORDER BY created_at LIMIT 1`
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, name, surname); err != nil {
		return school.Parent{}, trapNoRowsErr(err, "selecting parent")
	}
	return row.parent(), nil
}

func (repo parentRepository) ParentsBySurname(ctx context.Context, surname string) ([]school.Parent, error) {
	var rows []parentRow
	q := `SELECT ` + parentColumns + ` FROM parents WHERE surname = $1 ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, surname); err != nil {
		return nil, trapNoRowsErr(err, "selecting parents")
	}
	parents := make([]school.Parent, 0, len(rows))
	for _, row := range rows {
		parents = append(parents, row.parent())
	}
	return parents, nil
}

func (repo parentRepository) CreateParent(ctx context.Context, p school.Parent) (school.Parent, error) {
	row := parentRow{
		identityRow: identityRow{
			ID:           p.ID,
			Username:     p.Username,
			Email:        p.Email,
			Name:         p.Name,
			Surname:      p.Surname,
			PasswordHash: p.PasswordHash,
			CreatedAt:    p.CreatedAt.UTC(),
		},
		Address: p.Address,
	}
	row.Phone.SetValid(p.Phone)
	q := `INSERT INTO parents (` + parentColumns + `)
		VALUES (:id, :username, :email, :phone, :name, :surname, :password_hash, :created_at, :address)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, row); err != nil {
		return school.Parent{}, trapUniqueErr(err, "inserting parent")
	}
	return row.parent(), nil
}
