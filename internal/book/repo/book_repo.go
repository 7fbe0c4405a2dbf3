package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/book/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

const bookColumns = `id, year, title, author_id, created_at, updated_at`

// Filter narrows List. Zero values match everything.
type Filter struct {
	Title    string
	Year     int
	AuthorID int64
	Page     utilities.Page
}

type BookRepo struct {
	db database.Handle
}

func NewBookRepo(db database.Handle) *BookRepo { return &BookRepo{db: db} }

func (r *BookRepo) Create(ctx context.Context, b *entity.Book) error {
	q := r.db.Rebind(`INSERT INTO books (` + bookColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, b.ID, b.Year, b.Title, b.AuthorID, b.CreatedAt, b.UpdatedAt); err != nil {
		return oops.Code("BOOK_CREATE_FAILED").
			With("title", b.Title).
			With("author_id", b.AuthorID).
			Wrap(err)
	}
	return nil
}

// FindByID returns the book or an error wrapping apperr.ErrNotFound.
func (r *BookRepo) FindByID(ctx context.Context, id int64) (*entity.Book, error) {
	return r.findOne(ctx, "id", id)
}

func (r *BookRepo) FindByTitle(ctx context.Context, title string) (*entity.Book, error) {
	return r.findOne(ctx, "title", title)
}

func (r *BookRepo) findOne(ctx context.Context, col string, value any) (*entity.Book, error) {
	q := r.db.Rebind(`SELECT ` + bookColumns + ` FROM books WHERE ` + col + ` = ?`)
	var b entity.Book
	err := sqlx.GetContext(ctx, r.db, &b, q, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("BOOK_NOT_FOUND").
			With(col, value).
			Wrap(apperr.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("BOOK_GET_FAILED").
			With(col, value).
			Wrap(err)
	}
	return &b, nil
}

// List returns books ordered by title.
func (r *BookRepo) List(ctx context.Context, f Filter) ([]*entity.Book, error) {
	var (
		where []string
		args  []any
	)
	if f.Title != "" {
		where = append(where, `title LIKE ? ESCAPE '\'`)
		args = append(args, utilities.ContainsPattern(f.Title))
	}
	if f.Year != 0 {
		where = append(where, `year = ?`)
		args = append(args, f.Year)
	}
	if f.AuthorID != 0 {
		where = append(where, `author_id = ?`)
		args = append(args, f.AuthorID)
	}
	q := `SELECT ` + bookColumns + ` FROM books`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY title, id LIMIT ? OFFSET ?`
	page := f.Page.Clamp()
	args = append(args, page.Limit, page.Offset)

	books := []*entity.Book{}
	if err := sqlx.SelectContext(ctx, r.db, &books, r.db.Rebind(q), args...); err != nil {
		return nil, oops.Code("BOOK_LIST_FAILED").Wrap(err)
	}
	return books, nil
}

// Update overwrites every mutable column.
func (r *BookRepo) Update(ctx context.Context, b *entity.Book) error {
	q := r.db.Rebind(`UPDATE books SET year = ?, title = ?, author_id = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, b.Year, b.Title, b.AuthorID, b.UpdatedAt, b.ID)
	if err != nil {
		return oops.Code("BOOK_UPDATE_FAILED").
			With("id", b.ID).
			Wrap(err)
	}
	return requireRow(res, b.ID)
}

func (r *BookRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM books WHERE id = ?`), id)
	if err != nil {
		return oops.Code("BOOK_DELETE_FAILED").
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
		return oops.Code("BOOK_NOT_FOUND").
			With("id", id).
			Wrap(apperr.ErrNotFound)
	}
	return nil
}
