package schema

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

type AuditLog struct {
	AppendOnly
	Action     string         `gorm:"size:64;not null;index"`
	ActorID    *string        `gorm:"size:64;index"`
	ActorEmail *string        `gorm:"size:255"`
	TargetID   *string        `gorm:"size:64;index"`
	TargetType *string        `gorm:"size:32"`
	Details    datatypes.JSON `gorm:"type:jsonb"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) ToModel() (*model.AuditEntry, error) {
	action, err := model.ParseAuditAction(a.Action)
	if err != nil {
		return nil, fmt.Errorf("audit log %s: %w", a.ID, err)
	}
	out := &model.AuditEntry{
		ID:         a.ID,
		Action:     action,
		ActorID:    deref(a.ActorID),
		ActorEmail: deref(a.ActorEmail),
		TargetID:   deref(a.TargetID),
		TargetType: deref(a.TargetType),
		CreatedAt:  a.CreatedAt,
	}
	if len(a.Details) > 0 {
		if err := json.Unmarshal(a.Details, &out.Details); err != nil {
			return nil, fmt.Errorf("audit log %s: decode details: %w", a.ID, err)
		}
	}
	return out, nil
}

func AuditLogFromModel(m *model.AuditEntry) (*AuditLog, error) {
	row := &AuditLog{
		AppendOnly: AppendOnly{ID: m.ID, CreatedAt: m.CreatedAt},
		Action:     string(m.Action),
		ActorID:    strPtr(m.ActorID),
		ActorEmail: strPtr(m.ActorEmail),
		TargetID:   strPtr(m.TargetID),
		TargetType: strPtr(m.TargetType),
	}
	if len(m.Details) > 0 {
		raw, err := json.Marshal(m.Details)
		if err != nil {
			return nil, fmt.Errorf("encode details: %w", err)
		}
		row.Details = datatypes.JSON(raw)
	}
	return row, nil
}
