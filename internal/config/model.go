// internal/config/model.go
//
// Typed configuration model for FormPlant.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                              – dotenv values,
//   • `conf/global.yaml`                           – primary static file,
//   • `FORMPLANT_`-prefixed environment overrides  – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling, so secrets never live in
// flat files or git history.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Database section
//

// Database holds the MySQL DSN.  The password portion may be a `vault:`
// reference resolved at boot.
type Database struct {
	DSN string `koanf:"dsn" validate:"required"`
}

//
// Mail section
//

// Mail configures the SMTP relay.  An empty Host selects the logging
// transport, which is the development default.
type Mail struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"` // plain or vault:<path#key>
}

//
// Captcha section
//

// Captcha holds the provider secret shared by every captcha-enabled form.
type Captcha struct {
	Secret string `koanf:"secret"` // plain or vault:<path#key>
}

//
// Uploads section
//

// Uploads points file storage at a directory and its public URL prefix.
type Uploads struct {
	Dir     string `koanf:"dir" validate:"required"`
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

//
// Site section
//

// Site is the deployment identity used by email system tags and default
// sender addresses.
type Site struct {
	Name string `koanf:"name" validate:"required"`
	URL  string `koanf:"url" validate:"required,url"`
}

//
// Forms section
//

// Forms configures YAML definition seeding at boot.
type Forms struct {
	SeedDir string `koanf:"seed_dir"`
}

//
// Geo section
//

// Geo points at an optional MaxMind GeoLite2-City database.  When the path
// is empty, submissions record the bare client IP without geolocation.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or FORMPLANT_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // FORMPLANT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Mail     Mail     `koanf:"mail"`
	Captcha  Captcha  `koanf:"captcha"`
	Uploads  Uploads  `koanf:"uploads"`
	Site     Site     `koanf:"site"`
	Forms    Forms    `koanf:"forms"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
