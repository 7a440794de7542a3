package role

import (
	"testing"

	"github.com/stateline/govcomm/internal/config"
)

func newTestResolver() *Resolver {
	return NewResolverFromConfig(config.DefaultHierarchyConfig())
}

func TestResolveNilSnapshotIsGuest(t *testing.T) {
	resolver := newTestResolver()

	got, perms := resolver.Resolve(nil)
	if got != RoleGuest {
		t.Fatalf("expected guest, got %s", got)
	}
	if perms.CanAssignTasks || perms.CanManageSubordinates {
		t.Fatalf("guest must carry no managerial capabilities")
	}
}

func TestResolveDeputyMinisterBeforeMinister(t *testing.T) {
	resolver := newTestResolver()

	// "Заместитель министра финансов" contains the substring "министра";
	// the deputy rule must win because it is ordered first.
	got, _ := resolver.Resolve(&AppointmentSnapshot{
		PositionTitle: "Заместитель министра финансов",
		UnitType:      "ministry",
		UnitLevel:     1,
	})
	if got != RoleDeputyMinister {
		t.Fatalf("expected deputy_minister, got %s", got)
	}

	got, _ = resolver.Resolve(&AppointmentSnapshot{
		PositionTitle: "Министр финансов",
		UnitType:      "ministry",
		UnitLevel:     1,
	})
	if got != RoleMinister {
		t.Fatalf("expected minister, got %s", got)
	}
}

func TestResolveViceMinister(t *testing.T) {
	resolver := newTestResolver()

	got, _ := resolver.Resolve(&AppointmentSnapshot{
		PositionTitle: "Вице-министр цифрового развития",
	})
	if got != RoleDeputyMinister {
		t.Fatalf("expected deputy_minister for vice-minister title, got %s", got)
	}
}

func TestResolveFallbackRole(t *testing.T) {
	resolver := newTestResolver()

	got, perms := resolver.Resolve(&AppointmentSnapshot{
		PositionTitle: "Главный специалист отдела кадров",
		UnitType:      "division",
		UnitLevel:     3,
	})
	if got != RoleGovernmentOfficial {
		t.Fatalf("expected government_official fallback, got %s", got)
	}
	if perms.OrganizationScope != ScopeNone {
		t.Fatalf("fallback role must not carry structural scope, got %s", perms.OrganizationScope)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	resolver := newTestResolver()
	snapshot := &AppointmentSnapshot{
		PositionTitle: "Председатель комитета государственных доходов",
		UnitType:      "committee",
		UnitLevel:     2,
	}

	first, _ := resolver.Resolve(snapshot)
	for i := 0; i < 50; i++ {
		next, _ := resolver.Resolve(snapshot)
		if next != first {
			t.Fatalf("resolution changed between calls: %s then %s", first, next)
		}
	}
	if first != RoleCommitteeChairman {
		t.Fatalf("expected committee_chairman, got %s", first)
	}
}

func TestResolveDeputyChairmanBeforeChairman(t *testing.T) {
	resolver := newTestResolver()

	got, _ := resolver.Resolve(&AppointmentSnapshot{
		PositionTitle: "Заместитель председателя комитета",
	})
	if got != RoleDeputyCommitteeChairman {
		t.Fatalf("expected deputy_committee_chairman, got %s", got)
	}
}

func TestPermissionLevelsAreOrdered(t *testing.T) {
	roles := All()
	previous := -1
	for _, r := range roles {
		perms := PermissionsFor(r)
		if perms.HierarchyLevel <= previous {
			t.Fatalf("role %s breaks descending authority ordering", r)
		}
		previous = perms.HierarchyLevel
	}
}
