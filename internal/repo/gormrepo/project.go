package gormrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/schema"
)

type projectRepo struct {
	db *gorm.DB
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	row, err := schema.ProjectFromModel(p)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *projectRepo) Get(ctx context.Context, id string) (*model.Project, error) {
	var row schema.Project
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel()
}

func (r *projectRepo) List(ctx context.Context) ([]*model.Project, error) {
	var rows []schema.Project
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*model.Project, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToModel()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project) error {
	row, err := schema.ProjectFromModel(p)
	if err != nil {
		return err
	}
	if err := affected(r.db.WithContext(ctx).Model(row).
		Select("*").Omit("id", "created_at").
		Updates(row)); err != nil {
		return err
	}
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *projectRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Delete(&schema.Project{}, "id = ?", id))
}
