package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/events"
	"github.com/stateline/govcomm/internal/orgtree/domain"
	"github.com/stateline/govcomm/internal/orgtree/repository"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = MEMORY",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			t.Fatalf("pragma: %v", err)
		}
	}
	schema := []string{
		`CREATE TABLE organization_units (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			hierarchy_level INTEGER NOT NULL,
			parent_id INTEGER,
			path TEXT NOT NULL UNIQUE,
			order_index INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_organization_units_parent_order
			ON organization_units(COALESCE(parent_id, 0), order_index)`,
		`CREATE TABLE hierarchy_events (
			id INTEGER PRIMARY KEY,
			event_uuid TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return db
}

type recordingProvisioner struct {
	unitIDs []snowflake.ID
	err     error
}

func (p *recordingProvisioner) EnsureUnitChannel(_ context.Context, unitID snowflake.ID) error {
	p.unitIDs = append(p.unitIDs, unitID)
	return p.err
}

func newService(t *testing.T, db *gorm.DB, opts ...Option) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	repo := repository.New(db)
	publisher := events.NewOutboxPublisher(db, node)
	return New(db, repo, node, clock.New(), publisher, opts...)
}

func mustCreate(t *testing.T, svc domain.Service, name, unitType string, parentID *snowflake.ID) *domain.OrganizationUnit {
	t.Helper()
	unit, err := svc.CreateUnit(context.Background(), domain.CreateUnitRequest{
		Name:     name,
		Type:     unitType,
		ParentID: parentID,
	})
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	return unit
}

func TestCreateUnitBuildsMaterializedPath(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	ministry := mustCreate(t, svc, "Министерство финансов", domain.TypeMinistry, &root.ID)
	committee := mustCreate(t, svc, "Комитет казначейства", domain.TypeCommittee, &ministry.ID)

	if root.Path != root.ID.String() {
		t.Fatalf("root path = %q, want bare id", root.Path)
	}
	want := fmt.Sprintf("%s.%s.%s", root.ID, ministry.ID, committee.ID)
	if committee.Path != want {
		t.Fatalf("committee path = %q, want %q", committee.Path, want)
	}
	if committee.HierarchyLevel != 2 {
		t.Fatalf("committee level = %d, want 2", committee.HierarchyLevel)
	}

	chain, err := svc.AncestorChain(ctx, committee.ID)
	if err != nil {
		t.Fatalf("ancestor chain: %v", err)
	}
	if len(chain) != 3 || chain[0] != root.ID || chain[2] != committee.ID {
		t.Fatalf("ancestor chain = %v", chain)
	}
}

func TestCreateUnitValidation(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	if _, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Name: "  ", Type: domain.TypeMinistry}); err != domain.ErrInvalidUnitName {
		t.Fatalf("blank name: got %v, want ErrInvalidUnitName", err)
	}
	if _, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Name: "Отдел", Type: "bureau"}); err != domain.ErrInvalidUnitType {
		t.Fatalf("unknown type: got %v, want ErrInvalidUnitType", err)
	}
	// A ministry cannot be a root: level 0 is reserved for the republic.
	if _, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Name: "Министерство", Type: domain.TypeMinistry}); err != domain.ErrInvalidUnitType {
		t.Fatalf("ministry at root: got %v, want ErrInvalidUnitType", err)
	}

	missing := snowflake.ID(424242)
	if _, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Name: "Комитет", Type: domain.TypeCommittee, ParentID: &missing}); err != domain.ErrParentNotFound {
		t.Fatalf("missing parent: got %v, want ErrParentNotFound", err)
	}

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	if err := svc.DeleteUnit(ctx, root.ID, false); err != nil {
		t.Fatalf("delete root: %v", err)
	}
	if _, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Name: "Министерство", Type: domain.TypeMinistry, ParentID: &root.ID}); err != domain.ErrParentInactive {
		t.Fatalf("inactive parent: got %v, want ErrParentInactive", err)
	}
}

func TestCreateUnitProvisionsChannelBestEffort(t *testing.T) {
	db := setupDB(t)
	provisioner := &recordingProvisioner{err: fmt.Errorf("channel store offline")}
	svc := newService(t, db, WithChannelProvisioner(provisioner))

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)

	if len(provisioner.unitIDs) != 1 || provisioner.unitIDs[0] != root.ID {
		t.Fatalf("provisioner calls = %v", provisioner.unitIDs)
	}
	// The provisioner failed but the unit must still exist.
	if _, err := svc.GetUnit(context.Background(), root.ID); err != nil {
		t.Fatalf("unit lost after provisioner failure: %v", err)
	}
}

func TestDeleteUnitRequiresForceForChildren(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	ministry := mustCreate(t, svc, "Министерство юстиции", domain.TypeMinistry, &root.ID)
	department := mustCreate(t, svc, "Департамент регистрации", domain.TypeDepartment, &ministry.ID)

	if err := svc.DeleteUnit(ctx, ministry.ID, false); err != domain.ErrUnitHasChildren {
		t.Fatalf("delete with children: got %v, want ErrUnitHasChildren", err)
	}

	if err := svc.DeleteUnit(ctx, ministry.ID, true); err != nil {
		t.Fatalf("force delete: %v", err)
	}
	for _, id := range []snowflake.ID{ministry.ID, department.ID} {
		unit, err := svc.GetUnit(ctx, id)
		if err != nil {
			t.Fatalf("get %d: %v", id, err)
		}
		if unit.Active {
			t.Fatalf("unit %d still active after force delete", id)
		}
	}
	unit, err := svc.GetUnit(ctx, root.ID)
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	if !unit.Active {
		t.Fatal("root deactivated by subtree delete")
	}
}

func TestGetSubtreeAssemblesOrderedTree(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	finance := mustCreate(t, svc, "Министерство финансов", domain.TypeMinistry, &root.ID)
	justice := mustCreate(t, svc, "Министерство юстиции", domain.TypeMinistry, &root.ID)
	treasury := mustCreate(t, svc, "Комитет казначейства", domain.TypeCommittee, &finance.ID)
	division := mustCreate(t, svc, "Управление учёта", domain.TypeDivision, &treasury.ID)

	tree, err := svc.GetSubtree(ctx, &root.ID, 0)
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}
	if len(tree) != 1 || tree[0].Unit.ID != root.ID {
		t.Fatalf("unexpected forest shape: %d roots", len(tree))
	}
	children := tree[0].Children
	if len(children) != 2 || children[0].Unit.ID != finance.ID || children[1].Unit.ID != justice.ID {
		t.Fatalf("children out of order: %+v", children)
	}
	if len(children[0].Children) != 1 || children[0].Children[0].Unit.ID != treasury.ID {
		t.Fatal("treasury missing under finance")
	}

	// maxDepth 1 keeps ministries but cuts the committee layer.
	shallow, err := svc.GetSubtree(ctx, &root.ID, 1)
	if err != nil {
		t.Fatalf("shallow subtree: %v", err)
	}
	if len(shallow[0].Children) != 2 {
		t.Fatalf("shallow children = %d, want 2", len(shallow[0].Children))
	}
	if len(shallow[0].Children[0].Children) != 0 {
		t.Fatal("maxDepth ignored")
	}

	// Deleted units disappear from the tree.
	if err := svc.DeleteUnit(ctx, division.ID, false); err != nil {
		t.Fatalf("delete division: %v", err)
	}
	tree, err = svc.GetSubtree(ctx, &treasury.ID, 0)
	if err != nil {
		t.Fatalf("treasury subtree: %v", err)
	}
	if len(tree[0].Children) != 0 {
		t.Fatal("deleted division still present")
	}
}

func TestGetSubtreeWholeForest(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	mustCreate(t, svc, "Министерство обороны", domain.TypeMinistry, &root.ID)

	forest, err := svc.GetSubtree(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("forest: %v", err)
	}
	if len(forest) != 1 || forest[0].Unit.ID != root.ID || len(forest[0].Children) != 1 {
		t.Fatalf("unexpected forest: %+v", forest)
	}
}

func TestSiblingOrdinalsStayUnique(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	first := 1
	if _, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{
		Name:       "Министерство финансов",
		Type:       domain.TypeMinistry,
		ParentID:   &root.ID,
		OrderIndex: &first,
	}); err != nil {
		t.Fatalf("first sibling: %v", err)
	}
	if _, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{
		Name:       "Министерство юстиции",
		Type:       domain.TypeMinistry,
		ParentID:   &root.ID,
		OrderIndex: &first,
	}); err != domain.ErrOrderIndexTaken {
		t.Fatalf("repeated ordinal: got %v, want ErrOrderIndexTaken", err)
	}

	// Auto-assignment slots in after the taken ordinal.
	next := mustCreate(t, svc, "Министерство обороны", domain.TypeMinistry, &root.ID)
	if next.OrderIndex != 2 {
		t.Fatalf("auto ordinal = %d, want 2", next.OrderIndex)
	}

	taken := 1
	if _, err := svc.UpdateUnit(ctx, next.ID, domain.UpdateUnitRequest{OrderIndex: &taken}); err != domain.ErrOrderIndexTaken {
		t.Fatalf("update onto taken ordinal: got %v, want ErrOrderIndexTaken", err)
	}
}

func TestUpdateUnitDeactivationGuardsChildren(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	ministry := mustCreate(t, svc, "Министерство финансов", domain.TypeMinistry, &root.ID)

	inactive := false
	if _, err := svc.UpdateUnit(ctx, root.ID, domain.UpdateUnitRequest{Active: &inactive}); err != domain.ErrUnitHasChildren {
		t.Fatalf("deactivate parent: got %v, want ErrUnitHasChildren", err)
	}

	// Leaves deactivate freely, and the parent follows once its
	// subtree is inactive.
	if _, err := svc.UpdateUnit(ctx, ministry.ID, domain.UpdateUnitRequest{Active: &inactive}); err != nil {
		t.Fatalf("deactivate leaf: %v", err)
	}
	updated, err := svc.UpdateUnit(ctx, root.ID, domain.UpdateUnitRequest{Active: &inactive})
	if err != nil {
		t.Fatalf("deactivate root: %v", err)
	}
	if updated.Active {
		t.Fatal("root still active")
	}
}

func TestUpdateUnit(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	root := mustCreate(t, svc, "Правительство", domain.TypeRepublic, nil)
	name := "Правительство Республики"
	order := 5
	updated, err := svc.UpdateUnit(ctx, root.ID, domain.UpdateUnitRequest{Name: &name, OrderIndex: &order})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.OrderIndex != 5 {
		t.Fatalf("update not applied: %+v", updated)
	}

	blank := " "
	if _, err := svc.UpdateUnit(ctx, root.ID, domain.UpdateUnitRequest{Name: &blank}); err != domain.ErrInvalidUnitName {
		t.Fatalf("blank rename: got %v, want ErrInvalidUnitName", err)
	}
	if _, err := svc.UpdateUnit(ctx, snowflake.ID(999), domain.UpdateUnitRequest{Name: &name}); err != domain.ErrUnitNotFound {
		t.Fatalf("missing unit: got %v, want ErrUnitNotFound", err)
	}
}
