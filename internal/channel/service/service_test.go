package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/channel/domain"
	channelrepo "github.com/stateline/govcomm/internal/channel/repository"
	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/events"
	orgtreerepo "github.com/stateline/govcomm/internal/orgtree/repository"
	"github.com/stateline/govcomm/internal/testdb"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
	repo domain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	repo := channelrepo.New(db)
	svc := New(db, repo, orgtreerepo.New(db), node, clock.New(), events.NewOutboxPublisher(db, node), nil)
	return &fixture{db: db, node: node, svc: svc, repo: repo}
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

func (f *fixture) seedEmployment(t *testing.T, unitID snowflake.ID, managerial, managesSubordinates bool) snowflake.ID {
	t.Helper()
	userID := f.node.Generate()
	positionID := f.node.Generate()
	now := time.Now().UTC()
	err := f.db.Exec(
		`INSERT INTO users (id, login, full_name, status, system_role, created_at, updated_at)
		 VALUES (?, ?, '', 'active', 'guest', ?, ?)`,
		userID, userID.String(), now, now,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	err = f.db.Exec(
		`INSERT INTO positions (id, title, organization_unit_id, is_managerial, can_manage_subordinates, max_holders, active, created_at, updated_at)
		 VALUES (?, 'Сотрудник', ?, ?, ?, 1, true, ?, ?)`,
		positionID, unitID, managerial, managesSubordinates, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}
	err = f.db.Exec(
		`INSERT INTO appointments (id, user_id, position_id, organization_unit_id, position_title, is_current, start_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'Сотрудник', true, ?, ?, ?)`,
		f.node.Generate(), userID, positionID, unitID, now, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return userID
}

func (f *fixture) subscriptionRole(t *testing.T, unitID, userID snowflake.ID) (string, bool) {
	t.Helper()
	channel, err := f.repo.GetChannelByUnit(context.Background(), unitID)
	if err != nil {
		return "", false
	}
	subs, err := f.repo.ListSubscriptions(context.Background(), channel.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	for _, sub := range subs {
		if sub.UserID == userID {
			return sub.Role, true
		}
	}
	return "", false
}

func TestEnsureUnitChannelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unit, _ := f.seedUnit(t, "Министерство финансов", 1, nil, "")
	for i := 0; i < 3; i++ {
		if err := f.svc.EnsureUnitChannel(ctx, unit); err != nil {
			t.Fatalf("ensure round %d: %v", i, err)
		}
	}
	channel, err := f.svc.GetChannelByUnit(ctx, unit)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if !channel.AutoCreated {
		t.Fatal("channel not marked auto-created")
	}
	if channel.Slug == "" {
		t.Fatal("channel has no slug")
	}

	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM channels WHERE organization_unit_id = ?`, unit).Scan(&count).Error; err != nil {
		t.Fatalf("count channels: %v", err)
	}
	if count != 1 {
		t.Fatalf("channels for unit = %d, want 1", count)
	}
}

func TestSyncSubscribesAncestorChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, rootPath := f.seedUnit(t, "Правительство", 0, nil, "")
	ministry, ministryPath := f.seedUnit(t, "Министерство финансов", 1, &root, rootPath)
	committee, _ := f.seedUnit(t, "Комитет казначейства", 2, &ministry, ministryPath)
	user := f.seedEmployment(t, committee, true, true)

	if err := f.svc.SyncAppointmentChange(ctx, user, nil, &committee); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// Home unit channel carries the position's authority, ancestors
	// are plain subscribers.
	if role, ok := f.subscriptionRole(t, committee, user); !ok || role != domain.SubscriptionModerator {
		t.Fatalf("home role = %q ok=%v, want moderator", role, ok)
	}
	for _, ancestor := range []snowflake.ID{ministry, root} {
		if role, ok := f.subscriptionRole(t, ancestor, user); !ok || role != domain.SubscriptionSubscriber {
			t.Fatalf("ancestor %s role = %q ok=%v, want subscriber", ancestor, role, ok)
		}
	}

	channel, err := f.svc.GetChannelByUnit(ctx, committee)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if channel.SubscriberCount != 1 {
		t.Fatalf("subscriber count = %d, want 1", channel.SubscriberCount)
	}
}

func TestSyncTransferMovesDisjointChains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, rootPath := f.seedUnit(t, "Правительство", 0, nil, "")
	finance, financePath := f.seedUnit(t, "Министерство финансов", 1, &root, rootPath)
	treasury, _ := f.seedUnit(t, "Комитет казначейства", 2, &finance, financePath)
	justice, justicePath := f.seedUnit(t, "Министерство юстиции", 1, &root, rootPath)
	registry, _ := f.seedUnit(t, "Комитет регистрации", 2, &justice, justicePath)

	user := f.seedEmployment(t, treasury, true, false)
	if err := f.svc.SyncAppointmentChange(ctx, user, nil, &treasury); err != nil {
		t.Fatalf("initial sync: %v", err)
	}

	// Move the current appointment to the other branch, then cascade.
	if err := f.db.Exec(`UPDATE appointments SET organization_unit_id = ? WHERE user_id = ? AND is_current`, registry, user).Error; err != nil {
		t.Fatalf("move appointment: %v", err)
	}
	if err := f.db.Exec(`UPDATE positions SET organization_unit_id = ? WHERE id = (SELECT position_id FROM appointments WHERE user_id = ? AND is_current)`, registry, user).Error; err != nil {
		t.Fatalf("move position: %v", err)
	}
	if err := f.svc.SyncAppointmentChange(ctx, user, &treasury, &registry); err != nil {
		t.Fatalf("transfer sync: %v", err)
	}

	// The old branch is gone, the shared root stays, the new branch
	// appears with the home role on the new unit.
	for _, gone := range []snowflake.ID{treasury, finance} {
		if _, ok := f.subscriptionRole(t, gone, user); ok {
			t.Fatalf("stale subscription on unit %s", gone)
		}
	}
	if role, ok := f.subscriptionRole(t, root, user); !ok || role != domain.SubscriptionSubscriber {
		t.Fatalf("root role = %q ok=%v", role, ok)
	}
	if role, ok := f.subscriptionRole(t, registry, user); !ok || role != domain.SubscriptionMember {
		t.Fatalf("new home role = %q ok=%v, want member", role, ok)
	}
	if role, ok := f.subscriptionRole(t, justice, user); !ok || role != domain.SubscriptionSubscriber {
		t.Fatalf("new ancestor role = %q ok=%v", role, ok)
	}
}

func TestSyncDismissalRemovesAllSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, rootPath := f.seedUnit(t, "Правительство", 0, nil, "")
	ministry, _ := f.seedUnit(t, "Министерство обороны", 1, &root, rootPath)
	user := f.seedEmployment(t, ministry, false, false)

	if err := f.svc.SyncAppointmentChange(ctx, user, nil, &ministry); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := f.db.Exec(`UPDATE appointments SET is_current = false WHERE user_id = ?`, user).Error; err != nil {
		t.Fatalf("close appointment: %v", err)
	}
	if err := f.svc.SyncAppointmentChange(ctx, user, &ministry, nil); err != nil {
		t.Fatalf("dismissal sync: %v", err)
	}

	subs, err := f.svc.ListUserSubscriptions(ctx, user)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("subscriptions after dismissal = %d, want 0", len(subs))
	}
}

func TestResyncRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, rootPath := f.seedUnit(t, "Правительство", 0, nil, "")
	ministry, ministryPath := f.seedUnit(t, "Министерство финансов", 1, &root, rootPath)
	committee, _ := f.seedUnit(t, "Комитет казначейства", 2, &ministry, ministryPath)

	manager := f.seedEmployment(t, ministry, true, true)
	clerk := f.seedEmployment(t, committee, false, false)

	if err := f.svc.EnsureUnitChannel(ctx, ministry); err != nil {
		t.Fatalf("ensure channel: %v", err)
	}
	channel, err := f.svc.GetChannelByUnit(ctx, ministry)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}

	// Manufacture drift: a stray subscriber, a missing manager, a
	// stale sync error.
	stray := f.node.Generate()
	if err := f.db.Exec(
		`INSERT INTO channel_subscriptions (id, channel_id, user_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, 'member', ?, ?)`,
		f.node.Generate(), channel.ID, stray, time.Now().UTC(), time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("seed stray subscription: %v", err)
	}
	if err := f.db.Exec(`UPDATE channels SET last_sync_error = 'boom' WHERE id = ?`, channel.ID).Error; err != nil {
		t.Fatalf("seed sync error: %v", err)
	}

	report, err := f.svc.SyncOrganizationChannelMembership(ctx, ministry)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if report.Added != 2 || report.Removed != 1 {
		t.Fatalf("report = %+v, want 2 added 1 removed", report)
	}

	if role, ok := f.subscriptionRole(t, ministry, manager); !ok || role != domain.SubscriptionModerator {
		t.Fatalf("manager role = %q ok=%v", role, ok)
	}
	if role, ok := f.subscriptionRole(t, ministry, clerk); !ok || role != domain.SubscriptionSubscriber {
		t.Fatalf("descendant clerk role = %q ok=%v", role, ok)
	}
	if _, ok := f.subscriptionRole(t, ministry, stray); ok {
		t.Fatal("stray subscription survived resync")
	}

	repaired, err := f.svc.GetChannelByUnit(ctx, ministry)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if repaired.LastSyncError != nil {
		t.Fatalf("last sync error not cleared: %q", *repaired.LastSyncError)
	}
	if repaired.SubscriberCount != 2 {
		t.Fatalf("subscriber count = %d, want 2", repaired.SubscriberCount)
	}

	// Running the repair again changes nothing.
	again, err := f.svc.SyncOrganizationChannelMembership(ctx, ministry)
	if err != nil {
		t.Fatalf("second resync: %v", err)
	}
	if again.Added != 0 || again.Updated != 0 || again.Removed != 0 {
		t.Fatalf("second resync not idempotent: %+v", again)
	}
}

func TestHomeRoleFollowsPositionAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unit, _ := f.seedUnit(t, "Министерство внутренних дел", 1, nil, "")
	head := f.seedEmployment(t, unit, true, true)
	deputy := f.seedEmployment(t, unit, true, false)
	specialist := f.seedEmployment(t, unit, false, false)

	if err := f.svc.EnsureUnitChannel(ctx, unit); err != nil {
		t.Fatalf("ensure channel: %v", err)
	}

	if role, ok := f.subscriptionRole(t, unit, head); !ok || role != domain.SubscriptionModerator {
		t.Fatalf("subordinate-managing head role = %q ok=%v, want moderator", role, ok)
	}
	if role, ok := f.subscriptionRole(t, unit, deputy); !ok || role != domain.SubscriptionMember {
		t.Fatalf("merely-managerial deputy role = %q ok=%v, want member", role, ok)
	}
	if role, ok := f.subscriptionRole(t, unit, specialist); !ok || role != domain.SubscriptionSubscriber {
		t.Fatalf("rank-and-file specialist role = %q ok=%v, want subscriber", role, ok)
	}
}

func TestSyncTransferLeavesSharedChannelsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, rootPath := f.seedUnit(t, "Правительство", 0, nil, "")
	ministry, ministryPath := f.seedUnit(t, "Министерство финансов", 1, &root, rootPath)
	committee, _ := f.seedUnit(t, "Комитет казначейства", 2, &ministry, ministryPath)

	user := f.seedEmployment(t, ministry, true, false)
	if err := f.svc.SyncAppointmentChange(ctx, user, nil, &ministry); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	if role, ok := f.subscriptionRole(t, ministry, user); !ok || role != domain.SubscriptionMember {
		t.Fatalf("home role before transfer = %q ok=%v, want member", role, ok)
	}

	// Move down into the committee; the ministry and root channels sit
	// in both ancestor chains and must keep their subscriptions as-is.
	if err := f.db.Exec(`UPDATE appointments SET organization_unit_id = ? WHERE user_id = ? AND is_current`, committee, user).Error; err != nil {
		t.Fatalf("move appointment: %v", err)
	}
	if err := f.db.Exec(`UPDATE positions SET organization_unit_id = ?, is_managerial = false WHERE id = (SELECT position_id FROM appointments WHERE user_id = ? AND is_current)`, committee, user).Error; err != nil {
		t.Fatalf("move position: %v", err)
	}
	if err := f.svc.SyncAppointmentChange(ctx, user, &ministry, &committee); err != nil {
		t.Fatalf("transfer sync: %v", err)
	}

	if role, ok := f.subscriptionRole(t, ministry, user); !ok || role != domain.SubscriptionMember {
		t.Fatalf("shared ministry channel role = %q ok=%v, want untouched member", role, ok)
	}
	if role, ok := f.subscriptionRole(t, root, user); !ok || role != domain.SubscriptionSubscriber {
		t.Fatalf("shared root channel role = %q ok=%v, want subscriber", role, ok)
	}
	if role, ok := f.subscriptionRole(t, committee, user); !ok || role != domain.SubscriptionSubscriber {
		t.Fatalf("new home role = %q ok=%v, want subscriber", role, ok)
	}
}

func TestEnsureUnitChannelFillsExistingStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unit, _ := f.seedUnit(t, "Министерство юстиции", 1, nil, "")
	manager := f.seedEmployment(t, unit, true, true)
	clerk := f.seedEmployment(t, unit, false, false)

	// Channel created after the unit was already staffed.
	if err := f.svc.EnsureUnitChannel(ctx, unit); err != nil {
		t.Fatalf("ensure channel: %v", err)
	}

	if role, ok := f.subscriptionRole(t, unit, manager); !ok || role != domain.SubscriptionModerator {
		t.Fatalf("manager subscription = %q ok=%v, want moderator", role, ok)
	}
	if role, ok := f.subscriptionRole(t, unit, clerk); !ok || role != domain.SubscriptionSubscriber {
		t.Fatalf("clerk subscription = %q ok=%v, want subscriber", role, ok)
	}

	channel, err := f.svc.GetChannelByUnit(ctx, unit)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if channel.SubscriberCount != 2 {
		t.Fatalf("subscriber_count = %d, want 2", channel.SubscriberCount)
	}
}
