package authorize

import "github.com/Alijeyrad/destek_backend/config"

// Config holds configuration for the authorization system
type Config struct {
	// CasbinModelPath is the path to the Casbin model configuration file
	CasbinModelPath string

	// EnableAudit logs every authorization decision
	EnableAudit bool

	// SuperadminBypass lets the admin role skip policy lookups
	SuperadminBypass bool

	// PolicySyncEnabled listens for policy changes made by other instances
	PolicySyncEnabled bool

	// HealthCheckEnabled reports policy reload failures on /readyz
	HealthCheckEnabled bool
}

func DefaultConfig() Config {
	return Config{
		CasbinModelPath:    "config/casbin_model.conf",
		EnableAudit:        true,
		SuperadminBypass:   true,
		PolicySyncEnabled:  false,
		HealthCheckEnabled: true,
	}
}

// FromCentralConfig converts central config.AuthorizationConfig to package Config
func FromCentralConfig(c config.AuthorizationConfig) Config {
	cfg := Config{
		CasbinModelPath:    c.CasbinModelPath,
		EnableAudit:        c.EnableAudit,
		SuperadminBypass:   c.SuperadminBypass,
		PolicySyncEnabled:  c.PolicySyncEnabled,
		HealthCheckEnabled: c.HealthCheckEnabled,
	}
	if cfg.CasbinModelPath == "" {
		cfg.CasbinModelPath = DefaultConfig().CasbinModelPath
	}
	return cfg
}
