package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
)

const accountColumns = `id, username, email, password, created_at, updated_at`

// lookupColumns whitelists the fields FindOneBy may match on.
var lookupColumns = map[string]string{
	"id":       "id",
	"email":    "email",
	"username": "username",
}

// AccountRepo provides data access for the users table. Bind it to a
// *sqlx.DB or to the *sqlx.Tx of the current request.
type AccountRepo struct {
	db database.Handle
}

func NewAccountRepo(db database.Handle) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row. The caller assigns ID and timestamps.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	q := r.db.Rebind(`INSERT INTO users (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, a.ID, a.Username, a.Email, a.Password, a.CreatedAt, a.UpdatedAt); err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("username", a.Username).
			Wrap(err)
	}
	return nil
}

// FindOneBy returns the single account whose field equals value. field must
// be one of id, email or username. A miss wraps apperr.ErrNotFound.
func (r *AccountRepo) FindOneBy(ctx context.Context, field string, value any) (*entity.Account, error) {
	col, ok := lookupColumns[field]
	if !ok {
		return nil, fmt.Errorf("account lookup by unsupported field %q", field)
	}
	q := r.db.Rebind(`SELECT ` + accountColumns + ` FROM users WHERE ` + col + ` = ?`)
	var a entity.Account
	err := sqlx.GetContext(ctx, r.db, &a, q, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("field", field).
			Wrap(apperr.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("field", field).
			Wrap(err)
	}
	return &a, nil
}

// Update overwrites username, email, password and updated_at.
func (r *AccountRepo) Update(ctx context.Context, a *entity.Account) error {
	q := r.db.Rebind(`UPDATE users SET username = ?, email = ?, password = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, a.Username, a.Email, a.Password, a.UpdatedAt, a.ID)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("id", a.ID).
			Wrap(err)
	}
	return requireRow(res, a.ID)
}

// Delete removes the account row.
func (r *AccountRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("id", id).
			Wrap(err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(apperr.ErrNotFound)
	}
	return nil
}
