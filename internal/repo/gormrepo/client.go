// Package gormrepo implements the repo contracts on PostgreSQL through gorm.
package gormrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Alijeyrad/destek_backend/internal/repo"
)

// NewClient binds every repository to db.
func NewClient(db *gorm.DB) *repo.Client {
	return repo.NewClient(
		&accountRepo{db: db},
		&userRepo{db: db},
		&ticketRepo{db: db},
		&teamRepo{db: db},
		&projectRepo{db: db},
		&auditRepo{db: db},
		func(ctx context.Context, fn func(tx *repo.Client) error) error {
			return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return fn(NewClient(tx))
			})
		},
	)
}

// translate maps gorm sentinel errors onto repo sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repo.ErrConflict
	default:
		return err
	}
}

// affected turns a zero-row update into ErrNotFound.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func applyCursor(q *gorm.DB, c *repo.Cursor) *gorm.DB {
	if c == nil {
		return q
	}
	return q.Where("(created_at, id) < (?, ?)", c.CreatedAt, c.ID)
}
