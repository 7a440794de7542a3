// Package testdb opens throwaway in-memory databases with the engine's
// schema for service-level tests.
package testdb

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		login TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		system_role TEXT NOT NULL DEFAULT 'guest',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
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
	`CREATE TABLE positions (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		organization_unit_id INTEGER NOT NULL,
		reports_to_id INTEGER,
		is_managerial BOOLEAN NOT NULL DEFAULT false,
		can_manage_subordinates BOOLEAN NOT NULL DEFAULT false,
		can_assign_tasks BOOLEAN NOT NULL DEFAULT false,
		can_issue_disciplinary_actions BOOLEAN NOT NULL DEFAULT false,
		max_holders INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE appointments (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		position_id INTEGER NOT NULL,
		organization_unit_id INTEGER NOT NULL,
		position_title TEXT NOT NULL,
		is_current BOOLEAN NOT NULL DEFAULT false,
		start_date DATETIME NOT NULL,
		end_date DATETIME,
		appointed_by INTEGER,
		order_reference TEXT,
		dismissal_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_appointments_user_current
		ON appointments(user_id) WHERE is_current`,
	`CREATE TABLE channels (
		id INTEGER PRIMARY KEY,
		organization_unit_id INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		auto_created BOOLEAN NOT NULL DEFAULT false,
		subscriber_count INTEGER NOT NULL DEFAULT 0,
		last_sync_error TEXT,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE channel_subscriptions (
		id INTEGER PRIMARY KEY,
		channel_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		role TEXT NOT NULL DEFAULT 'subscriber',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(channel_id, user_id)
	)`,
	`CREATE TABLE hierarchy_events (
		id INTEGER PRIMARY KEY,
		event_uuid TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT,
		published BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_id INTEGER,
		action TEXT NOT NULL,
		object_type TEXT NOT NULL,
		object_id TEXT NOT NULL,
		detail TEXT,
		request_id TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// Open returns an isolated in-memory database seeded with the full
// schema. The database lives until the test ends.
func Open(t *testing.T) *gorm.DB {
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
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return db
}
