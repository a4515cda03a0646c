package gormrepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/schema"
)

type teamRepo struct {
	db *gorm.DB
}

func (r *teamRepo) Create(ctx context.Context, t *model.Team) error {
	row := schema.TeamFromModel(t)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	t.ID, t.CreatedAt, t.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *teamRepo) Get(ctx context.Context, id string) (*model.Team, error) {
	var row schema.Team
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel(), nil
}

func (r *teamRepo) Lock(ctx context.Context, id string, mode repo.LockMode) (*model.Team, error) {
	var row schema.Team
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: string(mode)}).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return row.ToModel(), nil
}

func (r *teamRepo) List(ctx context.Context) ([]*model.Team, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *teamRepo) ListByMember(ctx context.Context, uid string) ([]*model.Team, error) {
	return r.find(r.db.WithContext(ctx).Where("member_ids @> ARRAY[?]::text[]", uid))
}

func (r *teamRepo) find(q *gorm.DB) ([]*model.Team, error) {
	var rows []schema.Team
	if err := q.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*model.Team, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToModel())
	}
	return out, nil
}

func (r *teamRepo) Update(ctx context.Context, t *model.Team) error {
	row := schema.TeamFromModel(t)
	if err := affected(r.db.WithContext(ctx).Model(row).
		Select("*").Omit("id", "created_at").
		Updates(row)); err != nil {
		return err
	}
	t.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *teamRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Delete(&schema.Team{}, "id = ?", id))
}
