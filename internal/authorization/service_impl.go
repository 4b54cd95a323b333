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
	obslogger "github.com/smallbiznis/shelflife/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectStore  = "store"
	ObjectMember = "store_member"
	ObjectEntry  = "entry"
	ObjectCheck  = "daily_check"
)

const (
	ActionStoreView     = "store.view"
	ActionStoreDelete   = "store.delete"
	ActionStoreTransfer = "store.transfer"

	ActionMemberView = "store_member.view"

	ActionEntryView = "entry.view"

	ActionCheckRun = "daily_check.run"
)

const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads and persists policies through the casbin_rule table.
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
	return seeded(enforcer)
}

// NewMemoryEnforcer keeps policies in process only.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	return seeded(enforcer)
}

func seeded(enforcer *casbin.SyncedEnforcer) (*casbin.SyncedEnforcer, error) {
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, deviceID string, storeID string, object string, action string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ErrInvalidActor
	}
	parsedStoreID, err := snowflake.ParseString(strings.TrimSpace(storeID))
	if err != nil || parsedStoreID == 0 {
		return ErrInvalidStore
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return ErrInvalidInput
	}

	role, err := s.roleForDevice(ctx, parsedStoreID, deviceID)
	if err != nil {
		s.logDenied(ctx, deviceID, parsedStoreID, object, action, err)
		return err
	}

	subject := fmt.Sprintf("device:%s", deviceID)
	domain := fmt.Sprintf("store:%s", parsedStoreID.String())
	roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.logDenied(ctx, deviceID, parsedStoreID, object, action, ErrForbidden)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) roleForDevice(ctx context.Context, storeID snowflake.ID, deviceID string) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM store_members
		 WHERE store_id = ? AND device_id = ?
		 LIMIT 1`,
		storeID,
		deviceID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one role link per subject and store, so a
// transferred ownership takes effect on the next check.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) logDenied(ctx context.Context, deviceID string, storeID snowflake.ID, object, action string, reason error) {
	obslogger.WithContext(ctx, s.log).Info("authorization denied",
		zap.String("device_id", deviceID),
		zap.String("store_id", storeID.String()),
		zap.String("object", object),
		zap.String("action", action),
		zap.Error(reason),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Member permissions (read and daily work)
		{"role:member", ObjectStore, ActionStoreView},
		{"role:member", ObjectMember, ActionMemberView},
		{"role:member", ObjectEntry, ActionEntryView},
		{"role:member", ObjectCheck, ActionCheckRun},

		// Owner permissions
		{"role:owner", ObjectStore, ActionStoreView},
		{"role:owner", ObjectStore, ActionStoreDelete},
		{"role:owner", ObjectStore, ActionStoreTransfer},
		{"role:owner", ObjectMember, ActionMemberView},
		{"role:owner", ObjectEntry, ActionEntryView},
		{"role:owner", ObjectCheck, ActionCheckRun},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceImpl) ForgetStore(ctx context.Context, storeID string) error {
	parsed, err := snowflake.ParseString(strings.TrimSpace(storeID))
	if err != nil || parsed == 0 {
		return ErrInvalidStore
	}
	domain := fmt.Sprintf("store:%s", parsed.String())
	if _, err := s.enforcer.RemoveFilteredGroupingPolicy(2, domain); err != nil {
		return err
	}
	obslogger.WithContext(ctx, s.log).Debug("store role links removed", zap.String("store_id", parsed.String()))
	return nil
}
