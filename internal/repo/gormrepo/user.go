package gormrepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/schema"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Get(ctx context.Context, id string) (*model.Profile, error) {
	var row schema.User
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel(), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var row schema.User
	if err := r.db.WithContext(ctx).First(&row, "email = ?", schema.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel(), nil
}

func (r *userRepo) Create(ctx context.Context, p *model.Profile) error {
	row := schema.UserFromModel(p)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *userRepo) Upsert(ctx context.Context, p *model.Profile) error {
	row := schema.UserFromModel(p)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
	return translate(err)
}

func (r *userRepo) Update(ctx context.Context, p *model.Profile) error {
	row := schema.UserFromModel(p)
	return affected(r.db.WithContext(ctx).Model(row).
		Select("*").Omit("id", "created_at").
		Updates(row))
}

func (r *userRepo) List(ctx context.Context, f repo.UserFilter) ([]*model.Profile, error) {
	q := r.db.WithContext(ctx).Model(&schema.User{})
	if f.Role != nil {
		q = q.Where("role = ?", f.Role.Stored())
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.HasPushToken {
		q = q.Where("push_token IS NOT NULL AND push_token <> ''")
	}
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}

	var rows []schema.User
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*model.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToModel())
	}
	return out, nil
}

func (r *userRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&schema.User{}).Error)
}
