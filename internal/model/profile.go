package model

import "time"

// Profile is a user's profile document. Role is always a member of the
// closed role set; construction from storage goes through NormalizeRole.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	Specialty string    `json:"specialty,omitempty"`
	Active    bool      `json:"active"`
	PushToken string    `json:"-"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Minimal marks a placeholder built when the profile read timed out.
	Minimal bool `json:"minimal,omitempty"`
}

func (p *Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// MinimalProfile is used when the profile cannot be read in time.
func MinimalProfile(uid, email string) *Profile {
	return &Profile{
		ID:      uid,
		Email:   email,
		Role:    RoleCustomer,
		Active:  true,
		Minimal: true,
	}
}

// DefaultAdminProfile is written for allow-listed operator accounts that
// signed in without a profile.
func DefaultAdminProfile(uid, email string, now time.Time) *Profile {
	return &Profile{
		ID:        uid,
		Email:     email,
		FirstName: "Yönetici",
		Role:      RoleAdmin,
		Active:    true,
		CreatedBy: "system",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
