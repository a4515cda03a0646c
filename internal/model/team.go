package model

import (
	"slices"
	"time"
)

type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	MemberIDs []string  `json:"member_ids"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Team) HasMember(uid string) bool {
	return slices.Contains(t.MemberIDs, uid)
}

type Block struct {
	Name  string   `json:"name"`
	Units []string `json:"units"`
}

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
