package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const identityColumns = "id, username, email, phone, name, surname, password_hash, created_at"

type identityRow struct {
	ID           string      `db:"id"`
	Username     string      `db:"username"`
	Email        null.String `db:"email"`
	Phone        null.String `db:"phone"`
	Name         string      `db:"name"`
	Surname      string      `db:"surname"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (r identityRow) identity() user.Identity {
	return user.Identity{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email.String,
		Phone:        r.Phone.String,
		Name:         r.Name,
		Surname:      r.Surname,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// identityTable implements user.IdentityStore over one role table.
type identityTable struct {
	exec  core.DBExecutor
	table string
}

// keyFilter builds the WHERE clause of key; the first non-empty field wins.
func keyFilter(key user.NaturalKey) (string, string, error) {
	switch {
	case key.ID != "":
		if _, err := uuid.Parse(key.ID); err != nil {
			return "", "", user.ErrNotFound
		}
		return "id = $1", key.ID, nil
	case key.Username != "":
		return "username = $1", key.Username, nil
	case key.Email != "":
		return "email = $1", key.Email, nil
	case key.Phone != "":
		return "phone = $1", key.Phone, nil
	case key.UsernameOrEmail != "":
		return "(username = $1 OR email = $1)", key.UsernameOrEmail, nil
	}
	return "", "", user.ErrEmptyKey
}

func (t identityTable) FindIdentity(ctx context.Context, key user.NaturalKey) (user.Identity, error) {
	where, arg, err := keyFilter(key)
	if err != nil {
		return user.Identity{}, err
	}
	var row identityRow
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", identityColumns, t.table, where)
	if err = sqlx.GetContext(ctx, t.exec, &row, q, arg); err != nil {
		return user.Identity{}, trapNoRowsErr(err, "selecting "+t.table)
	}
	return row.identity(), nil
}

func (t identityTable) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	q := fmt.Sprintf("UPDATE %s SET password_hash = $1 WHERE id = $2", t.table)
	res, err := t.exec.ExecContext(ctx, q, hash, id)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

type staffRepository struct {
	identityTable
}

func (repo staffRepository) CreateStaff(ctx context.Context, ident user.Identity) (user.Identity, error) {
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	row := identityRow{
		ID:           ident.ID,
		Username:     ident.Username,
		Email:        null.NewString(ident.Email, ident.Email != ""),
		Phone:        null.NewString(ident.Phone, ident.Phone != ""),
		Name:         ident.Name,
		Surname:      ident.Surname,
		PasswordHash: ident.PasswordHash,
		CreatedAt:    ident.CreatedAt.UTC(),
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (:id, :username, :email, :phone, :name, :surname, :password_hash, :created_at)",
		repo.table, identityColumns,
	)
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, row); err != nil {
		return user.Identity{}, trapUniqueErr(err, "inserting "+repo.table)
	}
	return row.identity(), nil
}
