// Package seed bootstraps the minimal rows a fresh deployment needs: a
// root organization unit and, outside production, a super admin user.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/role"
)

const defaultRootUnitName = "Правительство"

// EnsureRootUnit creates the level-zero republic unit when the tree is
// empty. Idempotent across restarts.
func EnsureRootUnit(db *gorm.DB, name string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultRootUnitName
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Table("organization_units").
			Where("parent_id IS NULL AND active = ?", true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		id := node.Generate()
		now := time.Now().UTC()
		return tx.Exec(
			`INSERT INTO organization_units (id, name, type, hierarchy_level, parent_id, path, order_index, active, created_at, updated_at)
			 VALUES (?, ?, 'republic', 0, NULL, ?, 0, true, ?, ?)`,
			id, name, id.String(), now, now,
		).Error
	})
}

// EnsureDefaultAdmin creates the bootstrap super admin account when the
// login does not exist yet.
func EnsureDefaultAdmin(db *gorm.DB, login, fullName string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	login = strings.TrimSpace(login)
	if login == "" {
		login = "admin"
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = "System Administrator"
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Table("users").
			Where("login = ?", login).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		return tx.Exec(
			`INSERT INTO users (id, login, full_name, status, system_role, created_at, updated_at)
			 VALUES (?, ?, ?, 'active', ?, ?, ?)`,
			node.Generate(), login, fullName, string(role.RoleSuperAdmin), now, now,
		).Error
	})
}
