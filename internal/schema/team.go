package schema

import (
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

type Team struct {
	Base
	Name      string         `gorm:"size:128;not null"`
	Color     string         `gorm:"size:16"`
	MemberIDs pq.StringArray `gorm:"type:text[]"`
	Active    bool           `gorm:"not null"`
}

func (Team) TableName() string { return "ekipler" }

func (t *Team) ToModel() *model.Team {
	members := []string(t.MemberIDs)
	if members == nil {
		members = []string{}
	}
	return &model.Team{
		ID:        t.ID,
		Name:      t.Name,
		Color:     t.Color,
		MemberIDs: members,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func TeamFromModel(m *model.Team) *Team {
	return &Team{
		Base:      Base{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Name:      m.Name,
		Color:     m.Color,
		MemberIDs: pq.StringArray(m.MemberIDs),
		Active:    m.Active,
	}
}

type Project struct {
	Base
	Name   string         `gorm:"size:128;not null;uniqueIndex"`
	Blocks datatypes.JSON `gorm:"type:jsonb"`
}

func (Project) TableName() string { return "projeler" }

func (p *Project) ToModel() (*model.Project, error) {
	out := &model.Project{
		ID:        p.ID,
		Name:      p.Name,
		Blocks:    []model.Block{},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if len(p.Blocks) > 0 {
		if err := json.Unmarshal(p.Blocks, &out.Blocks); err != nil {
			return nil, fmt.Errorf("project %s: decode blocks: %w", p.ID, err)
		}
	}
	return out, nil
}

func ProjectFromModel(m *model.Project) (*Project, error) {
	blocks := m.Blocks
	if blocks == nil {
		blocks = []model.Block{}
	}
	raw, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	return &Project{
		Base:   Base{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Name:   m.Name,
		Blocks: datatypes.JSON(raw),
	}, nil
}
