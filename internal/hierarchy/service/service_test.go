package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/hierarchy/domain"
	hierarchyrepo "github.com/stateline/govcomm/internal/hierarchy/repository"
	orgtreerepo "github.com/stateline/govcomm/internal/orgtree/repository"
	"github.com/stateline/govcomm/internal/testdb"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc := New(hierarchyrepo.New(db), orgtreerepo.New(db))
	return &fixture{db: db, node: node, svc: svc}
}

func (f *fixture) seedUnit(t *testing.T, name string, level int, parent *snowflake.ID, parentPath string) (snowflake.ID, string) {
	t.Helper()
	id := f.node.Generate()
	path := id.String()
	if parentPath != "" {
		path = parentPath + "." + id.String()
	}
	err := f.db.Exec(
		`INSERT INTO organization_units (id, name, type, hierarchy_level, parent_id, path, order_index, active, created_at, updated_at)
		 VALUES (?, ?, 'ministry', ?, ?, ?, ?, true, ?, ?)`,
		id, name, level, parent, path, id, time.Now().UTC(), time.Now().UTC(),
	).Error
	if err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return id, path
}

func (f *fixture) seedPosition(t *testing.T, title string, unitID snowflake.ID, reportsTo *snowflake.ID, managerial bool) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := time.Now().UTC()
	err := f.db.Exec(
		`INSERT INTO positions (id, title, organization_unit_id, reports_to_id, is_managerial, max_holders, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 5, true, ?, ?)`,
		id, title, unitID, reportsTo, managerial, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}
	return id
}

func (f *fixture) seedHolder(t *testing.T, login string, positionID, unitID snowflake.ID) snowflake.ID {
	t.Helper()
	userID := f.node.Generate()
	now := time.Now().UTC()
	err := f.db.Exec(
		`INSERT INTO users (id, login, full_name, status, system_role, created_at, updated_at)
		 VALUES (?, ?, ?, 'active', 'guest', ?, ?)`,
		userID, login, login, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	var title string
	if err := f.db.Raw(`SELECT title FROM positions WHERE id = ?`, positionID).Scan(&title).Error; err != nil {
		t.Fatalf("position title: %v", err)
	}
	err = f.db.Exec(
		`INSERT INTO appointments (id, user_id, position_id, organization_unit_id, position_title, is_current, start_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, true, ?, ?, ?)`,
		f.node.Generate(), userID, positionID, unitID, title, now, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return userID
}

func TestDirectSupervisorFollowsReportsTo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unit, _ := f.seedUnit(t, "Министерство финансов", 1, nil, "")
	minister := f.seedPosition(t, "Министр финансов", unit, nil, true)
	deputy := f.seedPosition(t, "Заместитель министра", unit, &minister, true)

	boss := f.seedHolder(t, "boss", minister, unit)
	aide := f.seedHolder(t, "aide", deputy, unit)

	supervisor, err := f.svc.DirectSupervisor(ctx, aide)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	if supervisor == nil || supervisor.UserID != boss {
		t.Fatalf("supervisor = %+v, want %s", supervisor, boss)
	}

	// The minister has no one above them.
	top, err := f.svc.DirectSupervisor(ctx, boss)
	if err != nil {
		t.Fatalf("top supervisor: %v", err)
	}
	if top != nil {
		t.Fatalf("minister has supervisor %+v", top)
	}
}

func TestDirectSupervisorFallsBackToParentUnitManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ministry, ministryPath := f.seedUnit(t, "Министерство юстиции", 1, nil, "")
	committee, _ := f.seedUnit(t, "Комитет регистрации", 2, &ministry, ministryPath)

	ministerPos := f.seedPosition(t, "Министр юстиции", ministry, nil, true)
	clerkPos := f.seedPosition(t, "Специалист", committee, nil, false)

	minister := f.seedHolder(t, "minister", ministerPos, ministry)
	clerk := f.seedHolder(t, "clerk", clerkPos, committee)

	supervisor, err := f.svc.DirectSupervisor(ctx, clerk)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	if supervisor == nil || supervisor.UserID != minister {
		t.Fatalf("supervisor = %+v, want unit-chain fallback to %s", supervisor, minister)
	}
}

func TestSupervisorWithoutAppointmentIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stranger := f.node.Generate()
	supervisor, err := f.svc.DirectSupervisor(ctx, stranger)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	if supervisor != nil {
		t.Fatalf("unplaced user has supervisor %+v", supervisor)
	}

	subordinates, err := f.svc.Subordinates(ctx, stranger, true)
	if err != nil {
		t.Fatalf("subordinates: %v", err)
	}
	if len(subordinates) != 0 {
		t.Fatalf("unplaced user has %d subordinates", len(subordinates))
	}

	overview, err := f.svc.UserHierarchy(ctx, stranger)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Placement != nil || overview.Supervisor != nil || len(overview.Subordinates) != 0 {
		t.Fatalf("unplaced overview = %+v", overview)
	}
}

func TestSubordinatesDirectAndTransitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unit, _ := f.seedUnit(t, "Министерство финансов", 1, nil, "")
	minister := f.seedPosition(t, "Министр", unit, nil, true)
	deputy := f.seedPosition(t, "Заместитель министра", unit, &minister, true)
	director := f.seedPosition(t, "Директор департамента", unit, &deputy, true)
	clerk := f.seedPosition(t, "Специалист", unit, &director, false)

	boss := f.seedHolder(t, "m1", minister, unit)
	f.seedHolder(t, "d1", deputy, unit)
	f.seedHolder(t, "dir1", director, unit)
	f.seedHolder(t, "c1", clerk, unit)

	direct, err := f.svc.Subordinates(ctx, boss, false)
	if err != nil {
		t.Fatalf("direct: %v", err)
	}
	if len(direct) != 1 || direct[0].PositionID != deputy {
		t.Fatalf("direct subordinates = %+v", direct)
	}

	all, err := f.svc.Subordinates(ctx, boss, true)
	if err != nil {
		t.Fatalf("transitive: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("transitive subordinates = %d, want 3", len(all))
	}
}

func TestSubordinatesSurvivesReportingCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unit, _ := f.seedUnit(t, "Министерство связи", 1, nil, "")
	a := f.seedPosition(t, "Должность А", unit, nil, true)
	b := f.seedPosition(t, "Должность Б", unit, &a, true)
	// Corrupt the catalog: A reports to B while B reports to A.
	if err := f.db.Exec(`UPDATE positions SET reports_to_id = ? WHERE id = ?`, b, a).Error; err != nil {
		t.Fatalf("create cycle: %v", err)
	}

	holderA := f.seedHolder(t, "a", a, unit)
	f.seedHolder(t, "b", b, unit)

	all, err := f.svc.Subordinates(ctx, holderA, true)
	if err != nil {
		t.Fatalf("transitive with cycle: %v", err)
	}
	// Traversal must terminate and must not report the user to
	// themselves.
	for _, placement := range all {
		if placement.UserID == holderA {
			t.Fatalf("user listed as own subordinate: %+v", placement)
		}
	}
}

func TestSubtreeEmployees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ministry, ministryPath := f.seedUnit(t, "Министерство финансов", 1, nil, "")
	committee, _ := f.seedUnit(t, "Комитет казначейства", 2, &ministry, ministryPath)

	ministerPos := f.seedPosition(t, "Министр", ministry, nil, true)
	clerkPos := f.seedPosition(t, "Специалист", committee, nil, false)
	f.seedHolder(t, "m", ministerPos, ministry)
	f.seedHolder(t, "c", clerkPos, committee)

	own, err := f.svc.SubtreeEmployees(ctx, ministry, false)
	if err != nil {
		t.Fatalf("own employees: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("own employees = %d, want 1", len(own))
	}

	all, err := f.svc.SubtreeEmployees(ctx, ministry, true)
	if err != nil {
		t.Fatalf("subtree employees: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("subtree employees = %d, want 2", len(all))
	}
}
