package memory

import "time"

// Config configures the in-memory Service engine. Real deployments would
// swap Engine for a Redis-backed one; the contract and Config shape are
// what provider backends must honor.
type Config struct {
	// Engine selects the backing store. Only "memory" is implemented in
	// this module; the field exists so provider adapters have a
	// consistent selector.
	Engine string `json:"engine" yaml:"engine" env:"ENGINE"`

	// CleanupInterval is how often the janitor sweeps expired scopes.
	CleanupInterval time.Duration `json:"cleanupInterval" yaml:"cleanupInterval" env:"CLEANUP_INTERVAL"`
}

// SetDefaults fills zero-valued fields with sensible defaults.
func (c *Config) SetDefaults() {
	if c.Engine == "" {
		c.Engine = "memory"
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 30 * time.Second
	}
}
