package model

// Actor is the resolved caller of an operation.
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// ActorFromProfile builds the actor for a signed-in profile.
func ActorFromProfile(p *Profile) Actor {
	return Actor{ID: p.ID, Email: p.Email, Name: p.FullName(), Role: p.Role}
}

// System is the actor used for work the service does on its own behalf.
var System = Actor{ID: "system", Role: RoleAdmin}
