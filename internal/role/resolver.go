package role

import (
	"strings"

	"github.com/stateline/govcomm/internal/config"
)

// AppointmentSnapshot is the resolver input: the title recorded on the
// appointment plus the owning unit's classification.
type AppointmentSnapshot struct {
	PositionTitle string
	UnitType      string
	UnitLevel     int
}

// Resolver derives a system role from an appointment snapshot. It is a
// pure function of its inputs and the rules snapshot taken at
// construction; resolving the same snapshot twice yields the same role.
type Resolver struct {
	rules    []config.RoleRule
	fallback SystemRole
}

// NewResolver captures the current rule set from the config holder.
func NewResolver(holder *config.HierarchyConfigHolder) *Resolver {
	cfg := holder.Current()
	return NewResolverFromConfig(cfg)
}

// NewResolverFromConfig builds a resolver over an explicit rule snapshot.
func NewResolverFromConfig(cfg config.HierarchyConfig) *Resolver {
	fallback := SystemRole(cfg.FallbackRole)
	if !Known(fallback) {
		fallback = RoleGovernmentOfficial
	}
	return &Resolver{
		rules:    cfg.RoleRules,
		fallback: fallback,
	}
}

// Resolve maps an appointment snapshot to a role and its permissions.
// A nil snapshot (no current appointment) resolves to guest.
//
// Matching is ordered substring search over the lower-cased title. The
// rule order is load-bearing: "заместитель министра" contains "министр",
// so the deputy rule must run first. Reordering rules changes behavior
// for existing data.
func (r *Resolver) Resolve(snapshot *AppointmentSnapshot) (SystemRole, Permissions) {
	if snapshot == nil {
		return RoleGuest, PermissionsFor(RoleGuest)
	}

	title := strings.ToLower(strings.TrimSpace(snapshot.PositionTitle))
	if title == "" {
		return r.fallback, PermissionsFor(r.fallback)
	}

	for _, rule := range r.rules {
		for _, pattern := range rule.Patterns {
			if pattern == "" {
				continue
			}
			if strings.Contains(title, pattern) {
				matched := SystemRole(rule.Role)
				if !Known(matched) {
					continue
				}
				return matched, PermissionsFor(matched)
			}
		}
	}

	return r.fallback, PermissionsFor(r.fallback)
}
