package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/stateline/govcomm/internal/audit/domain"
	"github.com/stateline/govcomm/internal/role"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer builds the casbin enforcer over the gorm adapter and
// seeds the role policies from the capability matrix.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, object, action)
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, object, action)
		return ErrForbidden
	}
	return nil
}

// resolveActor maps an actor reference ("system" or "user:<id>") to a
// casbin subject and its current role grouping.
func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:super_admin", auditdomain.ActorTypeSystem, nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		raw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		idStr := userID.String()
		roleName, err := s.roleForUser(ctx, userID)
		if err != nil {
			return actor, "", auditdomain.ActorTypeUser, &idStr, err
		}
		return actor, fmt.Sprintf("role:%s", roleName), auditdomain.ActorTypeUser, &idStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (string, error) {
	var row struct {
		SystemRole string `gorm:"column:system_role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT system_role FROM users WHERE id = ? AND status = 'active' LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}
	roleName := strings.TrimSpace(strings.ToLower(row.SystemRole))
	if roleName == "" {
		return "", ErrForbidden
	}
	return roleName, nil
}

// ensureGrouping keeps the subject's grouping in step with the role the
// ledger derived. Appointments change roles at any time, so a stale
// grouping is replaced rather than accumulated.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, actorType, actorID, "authorization.denied", auditdomain.TargetAuthorization, &targetID, map[string]any{
		"object": object,
		"action": action,
	})
}

// seedPolicies derives the casbin policies from the static capability
// matrix so the two never drift apart.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var policies [][]string
	for _, systemRole := range role.All() {
		subject := fmt.Sprintf("role:%s", systemRole)
		perms := role.PermissionsFor(systemRole)

		policies = append(policies,
			[]string{subject, ObjectStructure, ActionView},
			[]string{subject, ObjectPosition, ActionView},
			[]string{subject, ObjectChannel, ActionView},
		)
		if systemRole != role.RoleGuest {
			policies = append(policies, []string{subject, ObjectAppointment, ActionView})
		}
		if perms.CanManageStructure {
			policies = append(policies,
				[]string{subject, ObjectStructure, ActionCreate},
				[]string{subject, ObjectStructure, ActionUpdate},
				[]string{subject, ObjectStructure, ActionDelete},
				[]string{subject, ObjectPosition, ActionCreate},
				[]string{subject, ObjectPosition, ActionUpdate},
			)
		}
		if perms.CanManageAppointments {
			policies = append(policies,
				[]string{subject, ObjectAppointment, ActionAppointmentAssign},
				[]string{subject, ObjectAppointment, ActionAppointmentDismiss},
			)
		}
		if perms.CanModerateChannels {
			policies = append(policies,
				[]string{subject, ObjectChannel, ActionUpdate},
				[]string{subject, ObjectChannel, ActionChannelResync},
			)
		}
		if perms.HierarchyLevel <= 2 && perms.OrganizationScope != role.ScopeNone {
			policies = append(policies, []string{subject, ObjectAuditLog, ActionView})
		}
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
