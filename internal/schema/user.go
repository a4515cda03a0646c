package schema

import (
	"strings"
	"time"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

// Account holds sign-in credentials. It is kept apart from the profile so an
// authenticated account without a profile row is representable.
type Account struct {
	Base
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	LastLoginAt  *time.Time
}

func (Account) TableName() string { return "accounts" }

// NormalizeEmail is the canonical form used for account lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type User struct {
	Base
	Email     string  `gorm:"size:255;uniqueIndex;not null"`
	FirstName string  `gorm:"size:100"`
	LastName  string  `gorm:"size:100"`
	Phone     string  `gorm:"size:32"`
	Role      string  `gorm:"size:32;not null;index"`
	Specialty *string `gorm:"size:64"`
	Active    bool    `gorm:"not null;index"`
	PushToken *string `gorm:"size:255"`
	CreatedBy *string `gorm:"size:64"`
}

func (User) TableName() string { return "users" }

// ToModel converts a stored row into a profile. The stored role string is
// untrusted and is coerced through NormalizeRole.
func (u *User) ToModel() *model.Profile {
	return &model.Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      model.NormalizeRole(u.Role),
		Specialty: deref(u.Specialty),
		Active:    u.Active,
		PushToken: deref(u.PushToken),
		CreatedBy: deref(u.CreatedBy),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func UserFromModel(p *model.Profile) *User {
	return &User{
		Base: Base{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		Email:     NormalizeEmail(p.Email),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Role:      p.Role.Stored(),
		Specialty: strPtr(p.Specialty),
		Active:    p.Active,
		PushToken: strPtr(p.PushToken),
		CreatedBy: strPtr(p.CreatedBy),
	}
}

func (a *Account) ToModel() *model.Account {
	return &model.Account{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		LastLoginAt:  a.LastLoginAt,
	}
}

func AccountFromModel(m *model.Account) *Account {
	return &Account{
		Base:         Base{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.CreatedAt},
		Email:        NormalizeEmail(m.Email),
		PasswordHash: m.PasswordHash,
		LastLoginAt:  m.LastLoginAt,
	}
}
