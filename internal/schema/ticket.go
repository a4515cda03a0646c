package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

type Ticket struct {
	Base
	Title       string `gorm:"size:200;not null"`
	Description string `gorm:"type:text"`
	Category    string `gorm:"size:64;index"`
	Priority    string `gorm:"size:16;not null;index"`
	Status      string `gorm:"size:16;not null;index"`

	ProjectName string `gorm:"size:128"`
	BlockName   string `gorm:"size:64"`
	UnitNo      string `gorm:"size:32"`

	CreatorID    string `gorm:"size:64;not null;index"`
	CreatorName  string `gorm:"size:200"`
	CreatorEmail string `gorm:"size:255"`
	CreatorPhone string `gorm:"size:32"`

	Photos pq.StringArray `gorm:"type:text[]"`

	AssignedTechnicianID   *string `gorm:"size:64;index"`
	AssignedTechnicianName *string `gorm:"size:200"`
	AssignedTeamID         *string `gorm:"size:64;index"`
	AssignedTeamName       *string `gorm:"size:128"`

	ResolutionPhotos pq.StringArray `gorm:"type:text[]"`
	ResolutionNote   string         `gorm:"type:text"`

	RatingStars   *int
	RatingComment *string `gorm:"type:text"`
	RatedAt       *time.Time

	Replies datatypes.JSON `gorm:"type:jsonb"`

	AssignedAt  *time.Time
	ResolvedAt  *time.Time
	ClosedAt    *time.Time
	CancelledAt *time.Time
}

func (Ticket) TableName() string { return "talepler" }

// ToModel validates a stored row. An unknown status marks the row as corrupt;
// an unknown priority is coerced to normal.
func (t *Ticket) ToModel() (*model.Ticket, error) {
	status, err := model.ParseStatus(t.Status)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", t.ID, err)
	}

	out := &model.Ticket{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    model.NormalizePriority(t.Priority),
		Status:      status,
		Location: model.Location{
			Project: t.ProjectName,
			Block:   t.BlockName,
			Unit:    t.UnitNo,
		},
		CreatorID:              t.CreatorID,
		CreatorName:            t.CreatorName,
		CreatorEmail:           t.CreatorEmail,
		CreatorPhone:           t.CreatorPhone,
		Photos:                 []string(t.Photos),
		AssignedTechnicianID:   deref(t.AssignedTechnicianID),
		AssignedTechnicianName: deref(t.AssignedTechnicianName),
		AssignedTeamID:         deref(t.AssignedTeamID),
		AssignedTeamName:       deref(t.AssignedTeamName),
		ResolutionPhotos:       []string(t.ResolutionPhotos),
		ResolutionNote:         t.ResolutionNote,
		Replies:                []model.Reply{},
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
		AssignedAt:             t.AssignedAt,
		ResolvedAt:             t.ResolvedAt,
		ClosedAt:               t.ClosedAt,
		CancelledAt:            t.CancelledAt,
	}

	if t.RatingStars != nil {
		r := &model.Rating{Stars: *t.RatingStars, Comment: deref(t.RatingComment)}
		if t.RatedAt != nil {
			r.RatedAt = *t.RatedAt
		}
		out.Rating = r
	}

	if len(t.Replies) > 0 {
		if err := json.Unmarshal(t.Replies, &out.Replies); err != nil {
			return nil, fmt.Errorf("ticket %s: decode replies: %w", t.ID, err)
		}
		for i := range out.Replies {
			out.Replies[i].Role = model.NormalizeRole(string(out.Replies[i].Role))
		}
	}

	return out, nil
}

func TicketFromModel(m *model.Ticket) (*Ticket, error) {
	replies := m.Replies
	if replies == nil {
		replies = []model.Reply{}
	}
	raw, err := json.Marshal(replies)
	if err != nil {
		return nil, fmt.Errorf("encode replies: %w", err)
	}

	t := &Ticket{
		Base: Base{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Title:                  m.Title,
		Description:            m.Description,
		Category:               m.Category,
		Priority:               string(m.Priority),
		Status:                 string(m.Status),
		ProjectName:            m.Location.Project,
		BlockName:              m.Location.Block,
		UnitNo:                 m.Location.Unit,
		CreatorID:              m.CreatorID,
		CreatorName:            m.CreatorName,
		CreatorEmail:           m.CreatorEmail,
		CreatorPhone:           m.CreatorPhone,
		Photos:                 pq.StringArray(m.Photos),
		AssignedTechnicianID:   strPtr(m.AssignedTechnicianID),
		AssignedTechnicianName: strPtr(m.AssignedTechnicianName),
		AssignedTeamID:         strPtr(m.AssignedTeamID),
		AssignedTeamName:       strPtr(m.AssignedTeamName),
		ResolutionPhotos:       pq.StringArray(m.ResolutionPhotos),
		ResolutionNote:         m.ResolutionNote,
		Replies:                datatypes.JSON(raw),
		AssignedAt:             m.AssignedAt,
		ResolvedAt:             m.ResolvedAt,
		ClosedAt:               m.ClosedAt,
		CancelledAt:            m.CancelledAt,
	}

	if m.Rating != nil {
		stars := m.Rating.Stars
		ratedAt := m.Rating.RatedAt
		t.RatingStars = &stars
		t.RatingComment = strPtr(m.Rating.Comment)
		t.RatedAt = &ratedAt
	}

	return t, nil
}
