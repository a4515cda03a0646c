package gormrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/schema"
)

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	row, err := schema.AuditLogFromModel(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	e.ID, e.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (r *auditRepo) List(ctx context.Context, aq repo.AuditQuery) ([]*model.AuditEntry, error) {
	q := r.db.WithContext(ctx).Model(&schema.AuditLog{})
	if aq.Action != "" {
		q = q.Where("action = ?", string(aq.Action))
	}
	if aq.ActorID != "" {
		q = q.Where("actor_id = ?", aq.ActorID)
	}
	if aq.TargetID != "" {
		q = q.Where("target_id = ?", aq.TargetID)
	}
	q = applyCursor(q, aq.After)
	if aq.Limit > 0 {
		q = q.Limit(aq.Limit)
	}

	var rows []schema.AuditLog
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*model.AuditEntry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].ToModel()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
