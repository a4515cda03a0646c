package model

import (
	"log/slog"
	"strings"
	"time"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// NormalizePriority maps stored or submitted priority strings onto the
// closed set. Empty and unknown values become normal.
func NormalizePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "urgent", "acil":
		return PriorityUrgent
	case "", "normal":
		return PriorityNormal
	}
	slog.Warn("unknown priority coerced to normal", "raw_priority", raw)
	return PriorityNormal
}

type Location struct {
	Project string `json:"project"`
	Block   string `json:"block,omitempty"`
	Unit    string `json:"unit,omitempty"`
}

type Reply struct {
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

type Rating struct {
	Stars   int       `json:"stars"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

type Ticket struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	Location    Location `json:"location"`

	CreatorID    string `json:"creator_id"`
	CreatorName  string `json:"creator_name"`
	CreatorEmail string `json:"creator_email"`
	CreatorPhone string `json:"creator_phone,omitempty"`

	// Photos are inline data URIs or blob keys.
	Photos []string `json:"photos,omitempty"`

	AssignedTechnicianID   string `json:"assigned_technician_id,omitempty"`
	AssignedTechnicianName string `json:"assigned_technician_name,omitempty"`
	// AssignedTeamName is copied from the team at assignment time and is not
	// updated when the team is renamed.
	AssignedTeamID   string `json:"atananEkipId,omitempty"`
	AssignedTeamName string `json:"atananEkipAdi,omitempty"`

	ResolutionPhotos []string `json:"resolution_photos,omitempty"`
	ResolutionNote   string   `json:"resolution_note,omitempty"`

	Rating  *Rating `json:"rating,omitempty"`
	Replies []Reply `json:"replies"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (t *Ticket) IsAssigned() bool {
	return t.AssignedTeamID != "" || t.AssignedTechnicianID != ""
}

// Before orders tickets newest first. ID breaks ties so keyset pagination
// is stable.
func (t *Ticket) Before(o *Ticket) bool {
	if !t.CreatedAt.Equal(o.CreatedAt) {
		return t.CreatedAt.After(o.CreatedAt)
	}
	return t.ID > o.ID
}

// TicketStats is the admin report summary.
type TicketStats struct {
	Total         int64              `json:"total"`
	ByStatus      map[Status]int64   `json:"by_status"`
	ByPriority    map[Priority]int64 `json:"by_priority"`
	ByCategory    map[string]int64   `json:"by_category"`
	RatedCount    int64              `json:"rated_count"`
	AverageRating float64            `json:"average_rating"`
}
