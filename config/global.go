package config

import "sync"

// The process-wide singleton exists purely to avoid re-parsing the
// environment on every call site. Prefer passing *Config explicitly
// through constructors; reach for GetGlobal only at the composition
// root.
var (
	globalMu  sync.Mutex
	globalCfg *Config
)

// GetGlobal returns the process-wide Config, building it lazily from
// defaults and environment on first access. The returned value must be
// treated as read-only.
func GetGlobal() *Config {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalCfg == nil {
		cfg, err := New()
		if err != nil {
			// Environment overrides that fail to parse fall back to pure
			// defaults rather than poisoning every call site.
			cfg = DefaultConfig()
		}
		globalCfg = cfg
	}
	return globalCfg
}

// ResetGlobal discards the singleton so the next GetGlobal builds a
// fresh instance. The old value is never mutated in place; callers
// holding it keep a consistent snapshot.
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = nil
}
