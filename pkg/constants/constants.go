package constants

const (
	AppName      = "destek"
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "DESTEK"
)

// NATS subjects.
const (
	SubjectTicketChanged = "destek.ticket.changed"
)

// Redis key prefixes.
const (
	SessionKeyPrefix = "session:"
	ProfileKeyPrefix = "profile:"
)
