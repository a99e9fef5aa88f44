// internal/config/loader.go
//
// Configuration loader.
//
// Context
// -------
// `Load()` builds one immutable `Config` struct from three layers (highest
// precedence last):
//
//  1. Optional `conf/.env` dotenv file.
//  2. `conf/global.yaml`.
//  3. Environment variables prefixed `FORJA_`, where `__` maps to “.”
//     (e.g., `FORJA_HTTP__LISTEN_ADDR → http.listen_addr`).
//
// After merging, `vault:` values are resolved through the registered secret
// resolver, the tree is unmarshalled into strongly-typed structs, validated,
// enriched with the runtime root path, and cached in an `atomic.Pointer`
// for lock-free reads.
//
// Logs use the global sugared logger (`zap.S()`) so early boot issues
// surface on the bootstrap console before the file logger is installed.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const secretPrefix = "vault:"

var current atomic.Pointer[Config]

// SecretResolver turns a `vault:<path>#<key>` reference into its plain
// value.  internal/vault provides the production implementation; tests can
// install a stub.
type SecretResolver func(ref string) (string, error)

var resolver atomic.Pointer[SecretResolver]

// SetSecretResolver registers the resolver used for `vault:` config values.
// Call before Load(); without one, `vault:` values pass through verbatim
// and fail validation downstream when used as credentials.
func SetSecretResolver(r SecretResolver) { resolver.Store(&r) }

//
// root discovery
//

// rootDir resolves FORJA_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to the executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("FORJA_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

//
// loader
//

// Load reads .env, YAML, and env overrides, resolves secrets, validates,
// and caches the Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	// Env overrides: FORJA_GENERATOR__API_KEY → generator.api_key
	if err := k.Load(env.Provider("FORJA_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, "FORJA_"), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(k); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if cfg.Paths.Sites == "" {
		cfg.Paths.Sites = filepath.Join(root, "sites")
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"sites_root", cfg.Paths.Sites,
		"generator_model", cfg.Generator.Model,
	)
	return &cfg, nil
}

// resolveSecrets replaces every `vault:` string leaf in the merged tree.
func resolveSecrets(k *koanf.Koanf) error {
	r := resolver.Load()
	if r == nil {
		return nil
	}
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, secretPrefix) {
			continue
		}
		plain, err := (*r)(strings.TrimPrefix(s, secretPrefix))
		if err != nil {
			return err
		}
		if err := k.Set(key, plain); err != nil {
			return err
		}
	}
	return nil
}

//
// helpers
//

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
