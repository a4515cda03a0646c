package gormrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/schema"
)

type accountRepo struct {
	db *gorm.DB
}

func (r *accountRepo) Create(ctx context.Context, a *model.Account) error {
	row := schema.AccountFromModel(a)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	a.ID = row.ID
	a.CreatedAt = row.CreatedAt
	return nil
}

func (r *accountRepo) Get(ctx context.Context, id string) (*model.Account, error) {
	var row schema.Account
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel(), nil
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var row schema.Account
	if err := r.db.WithContext(ctx).First(&row, "email = ?", schema.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel(), nil
}

func (r *accountRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return affected(r.db.WithContext(ctx).Model(&schema.Account{}).
		Where("id = ?", id).
		Update("password_hash", hash))
}

func (r *accountRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return affected(r.db.WithContext(ctx).Model(&schema.Account{}).
		Where("id = ?", id).
		Update("last_login_at", at))
}

func (r *accountRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&schema.Account{}).Error)
}
