// internal/config/model.go
//
// Typed configuration model for Forja.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   - optional `.env`                         – dotenv values,
//   - `conf/global.yaml`                      – primary static file,
//   - `FORJA_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   - The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Database section
//

// Database holds the control-plane DSN.  The secret portion may be kept in
// Vault (`vault:secret/forja#db_password`); the loader splices it in before
// validation runs.
type Database struct {
	DSN string `koanf:"dsn" validate:"required"`
}

//
// Generator section
//

// Generator configures the external text-generation backend.  Every call
// through this client consumes one quota unit for the owning tenant, so the
// timeout doubles as the upper bound on how long a unit can stay "in
// flight".
type Generator struct {
	Endpoint  string `koanf:"endpoint" validate:"required,url"`
	APIKey    string `koanf:"api_key"  validate:"required"`
	Model     string `koanf:"model"    validate:"required"`
	MaxTokens int    `koanf:"max_tokens"`
	TimeoutS  int    `koanf:"timeout_seconds"`
}

// Timeout returns the per-call deadline, defaulting to 90 s.
func (g Generator) Timeout() time.Duration {
	if g.TimeoutS <= 0 {
		return 90 * time.Second
	}
	return time.Duration(g.TimeoutS) * time.Second
}

//
// Quota section
//

// Quota sets per-plan daily generator-call limits.  A zero map falls back
// to the presets in internal/quota.
type Quota struct {
	DailyLimits map[string]int `koanf:"daily_limits"`
}

//
// Wizard section
//

// Wizard controls intake-session retention.  Uncompleted sessions idle
// longer than RetentionDays are purged by a background loop.
type Wizard struct {
	RetentionDays int `koanf:"retention_days"`
	PurgeHours    int `koanf:"purge_interval_hours"`
}

//
// Stats section
//

// Stats configures visit aggregation.  GeoIPPath is optional; when empty,
// visits are recorded without a country hint.
type Stats struct {
	GeoIPPath string `koanf:"geoip_db"`
}

//
// Logging section
//

// Logging holds the minimum level for the daily JSON log.
type Logging struct {
	Level string `koanf:"level"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or FORJA_ROOT override); `Sites` defaults to
// `<root>/sites` and is the parent of every per-site artifact tree.
type Paths struct {
	Root  string
	Sites string `koanf:"sites"`
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Generator Generator `koanf:"generator"`
	Quota     Quota     `koanf:"quota"`
	Wizard    Wizard    `koanf:"wizard"`
	Stats     Stats     `koanf:"stats"`
	Logging   Logging   `koanf:"logging"`
	Paths     Paths     `koanf:"paths"`
}
