package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RoleRule maps lower-cased position-title substrings to a system role.
// Rules are evaluated in order: the first rule with a matching pattern
// wins, so more specific patterns ("заместитель министра") must come
// before their superstrings ("министр").
type RoleRule struct {
	Role     string   `mapstructure:"role"`
	Patterns []string `mapstructure:"patterns"`
}

// HierarchyConfig holds tunables for the hierarchy engine.
type HierarchyConfig struct {
	RoleRules     []RoleRule `mapstructure:"roleRules"`
	FallbackRole  string     `mapstructure:"fallbackRole"`
	SyncBatchSize int        `mapstructure:"syncBatchSize"`
}

// DefaultHierarchyConfig returns the compiled-in rule set. The ordering
// is load-bearing: deputy/vice patterns contain their senior role's title
// as a substring and must be tested first.
func DefaultHierarchyConfig() HierarchyConfig {
	return HierarchyConfig{
		RoleRules: []RoleRule{
			{Role: "deputy_minister", Patterns: []string{"заместитель министра", "вице-министр", "deputy minister", "vice minister"}},
			{Role: "minister", Patterns: []string{"министр", "minister"}},
			{Role: "deputy_committee_chairman", Patterns: []string{"заместитель председателя", "deputy chairman"}},
			{Role: "committee_chairman", Patterns: []string{"председатель комитета", "председатель", "chairman"}},
			{Role: "department_director", Patterns: []string{"директор департамента", "директор", "director"}},
			{Role: "division_head", Patterns: []string{"руководитель управления", "начальник управления", "head of division"}},
			{Role: "unit_head", Patterns: []string{"начальник отдела", "заведующий", "head of unit"}},
		},
		FallbackRole:  "government_official",
		SyncBatchSize: 200,
	}
}

// HierarchyConfigHolder exposes the current hierarchy config, reloaded
// on file change without restart.
type HierarchyConfigHolder struct {
	current atomic.Value // holds HierarchyConfig
}

// NewHierarchyConfigHolder loads hierarchy.yml (or defaults) and watches
// it for changes.
func NewHierarchyConfigHolder() (*HierarchyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("hierarchy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/govcomm/config")
	v.AddConfigPath("/etc/govcomm")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GOVCOMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	useDefaults := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		useDefaults = true
	}

	cfg := DefaultHierarchyConfig()
	if !useDefaults {
		var loaded HierarchyConfig
		if err := v.UnmarshalKey("hierarchy", &loaded); err != nil {
			return nil, err
		}
		if len(loaded.RoleRules) > 0 {
			cfg = normalizeHierarchyConfig(loaded)
		}
		if err := validateHierarchyConfig(cfg); err != nil {
			return nil, err
		}
	}

	holder := &HierarchyConfigHolder{}
	holder.current.Store(cfg)

	if !useDefaults {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated HierarchyConfig
			if err := v.UnmarshalKey("hierarchy", &updated); err != nil {
				log.Printf("[hierarchy-config] reload failed: %v", err)
				return
			}
			updated = normalizeHierarchyConfig(updated)
			if err := validateHierarchyConfig(updated); err != nil {
				log.Printf("[hierarchy-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
		})
	}

	return holder, nil
}

// NewStaticHierarchyConfigHolder pins the holder to a fixed config with
// no file watching. Used by tests and one-shot tools.
func NewStaticHierarchyConfigHolder(cfg HierarchyConfig) *HierarchyConfigHolder {
	holder := &HierarchyConfigHolder{}
	holder.current.Store(normalizeHierarchyConfig(cfg))
	return holder
}

// Current returns the active config snapshot. Callers must resolve a
// whole appointment against a single snapshot to keep role derivation
// deterministic.
func (h *HierarchyConfigHolder) Current() HierarchyConfig {
	return h.current.Load().(HierarchyConfig)
}

func normalizeHierarchyConfig(cfg HierarchyConfig) HierarchyConfig {
	rules := make([]RoleRule, 0, len(cfg.RoleRules))
	for _, rule := range cfg.RoleRules {
		patterns := make([]string, 0, len(rule.Patterns))
		for _, p := range rule.Patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			patterns = append(patterns, p)
		}
		rules = append(rules, RoleRule{
			Role:     strings.ToLower(strings.TrimSpace(rule.Role)),
			Patterns: patterns,
		})
	}
	fallback := strings.ToLower(strings.TrimSpace(cfg.FallbackRole))
	if fallback == "" {
		fallback = DefaultHierarchyConfig().FallbackRole
	}
	batch := cfg.SyncBatchSize
	if batch <= 0 {
		batch = DefaultHierarchyConfig().SyncBatchSize
	}
	return HierarchyConfig{RoleRules: rules, FallbackRole: fallback, SyncBatchSize: batch}
}

func validateHierarchyConfig(cfg HierarchyConfig) error {
	if len(cfg.RoleRules) == 0 {
		return errors.New("hierarchy config requires at least one role rule")
	}
	for _, rule := range cfg.RoleRules {
		if rule.Role == "" {
			return errors.New("role rule with empty role name")
		}
		if len(rule.Patterns) == 0 {
			return errors.New("role rule " + rule.Role + " has no patterns")
		}
	}
	return nil
}
