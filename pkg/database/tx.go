package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Handle is what repositories query through. Both *sqlx.DB and *sqlx.Tx
// satisfy it.
type Handle = sqlx.ExtContext

// WithTx begins a transaction, runs fn with it, then commits on success or
// rolls back on error or panic. Panics are rethrown.
//
//	err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
//	    return repo.NewAccountRepo(tx).Delete(ctx, id)
//	})
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}
