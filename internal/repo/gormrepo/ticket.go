package gormrepo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/schema"
)

type ticketRepo struct {
	db *gorm.DB
}

func (r *ticketRepo) Create(ctx context.Context, t *model.Ticket) error {
	row, err := schema.TicketFromModel(t)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	t.ID, t.CreatedAt, t.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *ticketRepo) Get(ctx context.Context, id string) (*model.Ticket, error) {
	var row schema.Ticket
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel()
}

func (r *ticketRepo) Update(ctx context.Context, t *model.Ticket) error {
	row, err := schema.TicketFromModel(t)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(row).
		Select("*").Omit("id", "created_at", "creator_id").
		Updates(row)
	if err := affected(res); err != nil {
		return err
	}
	t.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *ticketRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Delete(&schema.Ticket{}, "id = ?", id))
}

func (r *ticketRepo) DeleteByCreators(ctx context.Context, creatorIDs []string) (int64, error) {
	if len(creatorIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("creator_id IN ?", creatorIDs).Delete(&schema.Ticket{})
	return res.RowsAffected, translate(res.Error)
}

func (r *ticketRepo) Query(ctx context.Context, tq repo.TicketQuery) ([]*model.Ticket, error) {
	q := r.db.WithContext(ctx).Model(&schema.Ticket{})

	if tq.CreatorID != "" {
		q = q.Where("creator_id = ?", tq.CreatorID)
	}
	if len(tq.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(tq.Statuses))
	}
	if tq.Priority != "" {
		q = q.Where("priority = ?", string(tq.Priority))
	}
	if tq.Unassigned {
		q = q.Where("assigned_team_id IS NULL AND assigned_technician_id IS NULL")
	}
	if tq.TeamID != "" {
		q = q.Where("assigned_team_id = ?", tq.TeamID)
	}
	if a := tq.AssignedTo; a != nil {
		// grouped so the OR does not leak into the other conditions
		match := r.db.Where("assigned_technician_id = ?", a.TechnicianID)
		if len(a.TeamIDs) > 0 {
			match = match.Or("assigned_team_id IN ?", a.TeamIDs)
		}
		q = q.Where(match)
	}
	q = applyCursor(q, tq.After)

	if tq.Limit > 0 {
		q = q.Limit(tq.Limit)
	}

	var rows []schema.Ticket
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query tickets: %w", translate(err))
	}

	out := make([]*model.Ticket, 0, len(rows))
	for i := range rows {
		t, err := rows[i].ToModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *ticketRepo) CountByTeam(ctx context.Context, teamID string, statuses []model.Status) (int64, error) {
	q := r.db.WithContext(ctx).Model(&schema.Ticket{}).Where("assigned_team_id = ?", teamID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(statuses))
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

type groupCount struct {
	Key   string
	Count int64
}

func (r *ticketRepo) Stats(ctx context.Context) (*model.TicketStats, error) {
	db := r.db.WithContext(ctx).Model(&schema.Ticket{})
	stats := &model.TicketStats{
		ByStatus:   map[model.Status]int64{},
		ByPriority: map[model.Priority]int64{},
		ByCategory: map[string]int64{},
	}

	group := func(col string) ([]groupCount, error) {
		var out []groupCount
		err := db.Session(&gorm.Session{}).
			Select(col + " AS key, COUNT(*) AS count").
			Group(col).
			Scan(&out).Error
		return out, err
	}

	byStatus, err := group("status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, g := range byStatus {
		stats.ByStatus[model.Status(g.Key)] = g.Count
		stats.Total += g.Count
	}

	byPriority, err := group("priority")
	if err != nil {
		return nil, fmt.Errorf("count by priority: %w", err)
	}
	for _, g := range byPriority {
		stats.ByPriority[model.NormalizePriority(g.Key)] += g.Count
	}

	byCategory, err := group("category")
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	for _, g := range byCategory {
		stats.ByCategory[g.Key] = g.Count
	}

	var rating struct {
		Count int64
		Avg   *float64
	}
	err = db.Session(&gorm.Session{}).
		Select("COUNT(rating_stars) AS count, AVG(rating_stars) AS avg").
		Where("rating_stars IS NOT NULL").
		Scan(&rating).Error
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	stats.RatedCount = rating.Count
	if rating.Avg != nil {
		stats.AverageRating = *rating.Avg
	}

	return stats, nil
}

func statusStrings(in []model.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
