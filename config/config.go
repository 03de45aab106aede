package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by Settings.Provider.
const (
	ProviderMemory      = "Memory"
	ProviderDistributed = "Distributed"
)

// KeyDisplayMode controls how cache keys appear in diagnostics output.
// Hash mode keeps caller-supplied filter values (which may contain user
// input) out of logs and response headers.
type KeyDisplayMode string

const (
	KeyDisplayRaw  KeyDisplayMode = "Raw"
	KeyDisplayHash KeyDisplayMode = "Hash"
)

const (
	DefaultKeyPrefix          = "app"
	DefaultTTLSeconds         = 60
	DefaultIndexKeyTTLSeconds = 600
	DefaultStatusHeaderName   = "X-Cache-Status"
)

// ErrUnknownProvider is returned by Validate for a provider name that is
// neither Memory nor Distributed. Provider selection happens once at process
// startup, so this is the fail-fast path — never a per-request error.
var ErrUnknownProvider = fmt.Errorf("config: unknown cache provider")

// EndpointTTL is a per-endpoint TTL override. Zero values mean "not set".
type EndpointTTL struct {
	AbsoluteTTLSeconds int `yaml:"absoluteTtlSeconds"`
	SlidingTTLSeconds  int `yaml:"slidingTtlSeconds"`
}

type MemorySettings struct {
	SizeLimitMB int `yaml:"sizeLimitMb"`
}

type DistributedSettings struct {
	ConnectionString string `yaml:"connectionString"`
	// IndexKeyTTLSeconds is the floor for prefix index, catalog and hash
	// index key TTLs. Index keys always live at least as long as the newest
	// entry they track (the effective TTL is max of this and the entry TTL),
	// so a value smaller than an entry TTL only narrows the floor — it never
	// orphans entries from prefix invalidation.
	IndexKeyTTLSeconds int `yaml:"indexKeyTtlSeconds"`
}

type ProviderSettings struct {
	Memory      MemorySettings      `yaml:"memory"`
	Distributed DistributedSettings `yaml:"distributed"`
}

type DiagnosticsSettings struct {
	EmitCacheStatusHeader bool           `yaml:"emitCacheStatusHeader"`
	HeaderName            string         `yaml:"headerName"`
	KeyDisplayMode        KeyDisplayMode `yaml:"keyDisplayMode"`
}

// Settings is one immutable snapshot of the cache configuration. Callers
// obtain a fresh snapshot per operation through a Provider, so a live reload
// can never change the configuration out from under an in-flight call.
type Settings struct {
	Enabled                     bool                   `yaml:"enabled"`
	DisableCache                bool                   `yaml:"disableCache"`
	DefaultCacheDurationSeconds int                    `yaml:"defaultCacheDurationSeconds"`
	Provider                    string                 `yaml:"provider"`
	KeyPrefix                   string                 `yaml:"keyPrefix"`
	ProviderSettings            ProviderSettings       `yaml:"providerSettings"`
	PerEndpoint                 map[string]EndpointTTL `yaml:"perEndpoint"`
	Diagnostics                 DiagnosticsSettings    `yaml:"diagnostics"`
}

// Active reports whether caching should happen at all. DisableCache is the
// hard kill switch and wins over Enabled.
func (s Settings) Active() bool {
	return s.Enabled && !s.DisableCache
}

// DefaultTTL returns the configured default entry TTL, clamped to at least
// one second and falling back to DefaultTTLSeconds when unset.
func (s Settings) DefaultTTL() time.Duration {
	secs := s.DefaultCacheDurationSeconds
	if secs <= 0 {
		secs = DefaultTTLSeconds
	}
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// IndexTTL returns the floor TTL for index and catalog keys.
func (s Settings) IndexTTL() time.Duration {
	secs := s.ProviderSettings.Distributed.IndexKeyTTLSeconds
	if secs <= 0 {
		secs = DefaultIndexKeyTTLSeconds
	}
	return time.Duration(secs) * time.Second
}

// EndpointTTL looks up a per-endpoint override, case-insensitively, falling
// back to the empty-string entry. The second return reports whether any
// entry was found.
func (s Settings) EndpointTTL(name string) (EndpointTTL, bool) {
	if len(s.PerEndpoint) == 0 {
		return EndpointTTL{}, false
	}
	if e, ok := s.PerEndpoint[name]; ok {
		return e, true
	}
	for k, e := range s.PerEndpoint {
		if strings.EqualFold(k, name) {
			return e, true
		}
	}
	if name != "" {
		if e, ok := s.PerEndpoint[""]; ok {
			return e, true
		}
	}
	return EndpointTTL{}, false
}

// Normalize fills defaults in place. Invalid numeric values are clamped at
// the point of use rather than here, so a snapshot round-trips losslessly.
func (s *Settings) Normalize() {
	if s.Provider == "" {
		s.Provider = ProviderMemory
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = DefaultKeyPrefix
	}
	if s.Diagnostics.HeaderName == "" {
		s.Diagnostics.HeaderName = DefaultStatusHeaderName
	}
	if s.Diagnostics.KeyDisplayMode == "" {
		s.Diagnostics.KeyDisplayMode = KeyDisplayRaw
	}
}

// Validate rejects settings that should stop the process at startup:
// an unrecognized provider or key display mode.
func (s Settings) Validate() error {
	switch s.Provider {
	case ProviderMemory, ProviderDistributed:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}
	switch s.Diagnostics.KeyDisplayMode {
	case KeyDisplayRaw, KeyDisplayHash:
	default:
		return fmt.Errorf("config: unknown key display mode %q", s.Diagnostics.KeyDisplayMode)
	}
	if s.Provider == ProviderDistributed && s.ProviderSettings.Distributed.ConnectionString == "" {
		return fmt.Errorf("config: distributed provider requires a connection string")
	}
	return nil
}

// Load reads settings from a YAML file, applies environment overrides,
// normalizes defaults and validates the result.
func Load(path string) (Settings, error) {
	var s Settings
	buf, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return s, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyEnv(&s)
	s.Normalize()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// applyEnv layers QUERYCACHE_* environment overrides on top of file
// settings. Duration values accept go-style strings ("90s", "2m").
func applyEnv(s *Settings) {
	if v, ok := envBool("QUERYCACHE_ENABLED"); ok {
		s.Enabled = v
	}
	if v, ok := envBool("QUERYCACHE_DISABLE_CACHE"); ok {
		s.DisableCache = v
	}
	if v := os.Getenv("QUERYCACHE_PROVIDER"); v != "" {
		s.Provider = v
	}
	if v := os.Getenv("QUERYCACHE_KEY_PREFIX"); v != "" {
		s.KeyPrefix = v
	}
	if v := os.Getenv("QUERYCACHE_CONNECTION_STRING"); v != "" {
		s.ProviderSettings.Distributed.ConnectionString = v
	}
	if d, ok := envDuration("QUERYCACHE_DEFAULT_TTL"); ok {
		s.DefaultCacheDurationSeconds = int(d / time.Second)
	}
	if d, ok := envDuration("QUERYCACHE_INDEX_KEY_TTL"); ok {
		s.ProviderSettings.Distributed.IndexKeyTTLSeconds = int(d / time.Second)
	}
}

func envBool(name string) (bool, bool) {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	d, err := str2duration.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
