package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	"github.com/smallbiznis/shelflife/internal/audit/masking"
	"github.com/smallbiznis/shelflife/internal/authorization"
	"github.com/smallbiznis/shelflife/internal/clock"
	obslogger "github.com/smallbiznis/shelflife/internal/observability/logger"
	"github.com/smallbiznis/shelflife/internal/observability/metrics"
	"github.com/smallbiznis/shelflife/internal/store/domain"
	"github.com/smallbiznis/shelflife/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Authorizer authorization.Service
	Limiter    domain.JoinLimiter   `optional:"true"`
	GenCode    domain.CodeGenerator `optional:"true"`
	Metrics    *metrics.Metrics     `optional:"true"`
	Activity   auditdomain.Service  `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	authorizer authorization.Service
	limiter    domain.JoinLimiter
	genCode    domain.CodeGenerator
	metrics    *metrics.Metrics
	activity   auditdomain.Service
}

func New(p Params) domain.Service {
	genCode := p.GenCode
	if genCode == nil {
		genCode = RandomCode
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("store.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		authorizer: p.Authorizer,
		limiter:    p.Limiter,
		genCode:    genCode,
		metrics:    p.Metrics,
		activity:   p.Activity,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateStoreRequest) (domain.Membership, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > domain.MaxNameLength {
		return domain.Membership{}, domain.ErrInvalidName
	}
	nickname, err := normalizeNickname(req.Nickname)
	if err != nil {
		return domain.Membership{}, err
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return domain.Membership{}, domain.ErrInvalidDeviceID
	}

	now := s.clock.Now()
	store := domain.Store{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := domain.Member{
		ID:       s.genID.Generate(),
		StoreID:  store.ID,
		DeviceID: deviceID,
		Nickname: nickname,
		Role:     domain.RoleOwner,
		JoinedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}
		store.Code = code
		if err := s.repo.InsertStore(ctx, tx, &store); err != nil {
			return err
		}
		return s.repo.InsertMember(ctx, tx, &owner)
	})
	if err != nil {
		if errors.Is(err, domain.ErrCodeGenerationExhausted) {
			obslogger.WithContext(ctx, s.log).Error("store code generation exhausted",
				zap.String("store_id", store.ID.String()),
				zap.Int("attempts", domain.MaxCodeAttempts),
			)
		}
		return domain.Membership{}, err
	}

	obslogger.WithStore(obslogger.WithContext(ctx, s.log), store.ID.String()).Info("store created")
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:       store.ID,
		ActorDeviceID: deviceID,
		Action:        auditdomain.ActionStoreCreated,
		TargetType:    auditdomain.TargetStore,
		TargetID:      store.ID.String(),
		Metadata: map[string]any{
			"name": store.Name,
			"code": masking.MaskSecret(store.Code),
		},
	})
	return domain.Membership{Store: store, Member: owner, MemberCount: 1}, nil
}

// uniqueCode retries on collision up to MaxCodeAttempts candidates.
func (s *Service) uniqueCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < domain.MaxCodeAttempts; attempt++ {
		code, err := s.genCode()
		if err != nil {
			return "", err
		}
		code = strings.ToUpper(strings.TrimSpace(code))
		exists, err := s.repo.CodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.ErrCodeGenerationExhausted
}

func (s *Service) Join(ctx context.Context, req domain.JoinStoreRequest) (domain.Membership, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.Membership{}, domain.ErrInvalidCode
	}
	nickname, err := normalizeNickname(req.Nickname)
	if err != nil {
		return domain.Membership{}, err
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return domain.Membership{}, domain.ErrInvalidDeviceID
	}

	if err := s.allowJoin(ctx, req.ClientKey, deviceID); err != nil {
		return domain.Membership{}, err
	}

	var result domain.Membership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store, err := s.repo.FindStoreByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if store == nil {
			return domain.ErrNotFound
		}
		existing, err := s.repo.FindMember(ctx, tx, store.ID, deviceID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyMember
		}

		member := domain.Member{
			ID:       s.genID.Generate(),
			StoreID:  store.ID,
			DeviceID: deviceID,
			Nickname: nickname,
			Role:     domain.RoleMember,
			JoinedAt: s.clock.Now(),
		}
		if err := s.repo.InsertMember(ctx, tx, &member); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyMember
			}
			return err
		}
		count, err := s.repo.CountMembers(ctx, tx, store.ID)
		if err != nil {
			return err
		}
		result = domain.Membership{Store: *store, Member: member, MemberCount: count}
		return nil
	})
	if err != nil {
		return domain.Membership{}, err
	}

	obslogger.WithStore(obslogger.WithContext(ctx, s.log), result.Store.ID.String()).Info("store joined",
		zap.String("member_id", result.Member.ID.String()),
	)
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:       result.Store.ID,
		ActorDeviceID: deviceID,
		Action:        auditdomain.ActionMemberJoined,
		TargetType:    auditdomain.TargetMember,
		TargetID:      result.Member.ID.String(),
		Metadata:      map[string]any{"nickname": result.Member.Nickname},
	})
	return result, nil
}

// allowJoin fails open when the limiter backend is unavailable.
func (s *Service) allowJoin(ctx context.Context, clientKey, deviceID string) error {
	if s.limiter == nil {
		return nil
	}
	key := strings.TrimSpace(clientKey)
	if key == "" {
		key = deviceID
	}
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("join limiter unavailable", zap.Error(err))
		return nil
	}
	if !allowed {
		s.metrics.RecordJoinDenied(ctx, "rate_limited")
		return domain.ErrRateLimited
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Store, error) {
	storeID, err := parseID(id)
	if err != nil {
		return domain.Store{}, domain.ErrInvalidID
	}
	store, err := s.repo.FindStore(ctx, s.db, storeID)
	if err != nil {
		return domain.Store{}, err
	}
	if store == nil {
		return domain.Store{}, domain.ErrNotFound
	}
	return *store, nil
}

func (s *Service) ListByDevice(ctx context.Context, deviceID string) ([]domain.Membership, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.ErrInvalidDeviceID
	}
	members, err := s.repo.ListMembershipsByDevice(ctx, s.db, deviceID)
	if err != nil {
		return nil, err
	}

	memberships := make([]domain.Membership, 0, len(members))
	for _, member := range members {
		if member == nil {
			continue
		}
		store, err := s.repo.FindStore(ctx, s.db, member.StoreID)
		if err != nil {
			return nil, err
		}
		if store == nil {
			continue
		}
		count, err := s.repo.CountMembers(ctx, s.db, member.StoreID)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, domain.Membership{Store: *store, Member: *member, MemberCount: count})
	}
	return memberships, nil
}

func (s *Service) StoreIDsForDevice(ctx context.Context, deviceID string) ([]snowflake.ID, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.ErrInvalidDeviceID
	}
	members, err := s.repo.ListMembershipsByDevice(ctx, s.db, deviceID)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(members))
	for _, member := range members {
		if member == nil {
			continue
		}
		ids = append(ids, member.StoreID)
	}
	return ids, nil
}

func (s *Service) Members(ctx context.Context, id string) ([]domain.Member, error) {
	store, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListMembers(ctx, s.db, store.ID)
	if err != nil {
		return nil, err
	}
	members := make([]domain.Member, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}
	return members, nil
}

// Leave removes the caller's membership. An owner may only leave a store
// nobody else belongs to, which then deletes the store.
func (s *Service) Leave(ctx context.Context, id, deviceID string) error {
	storeID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return domain.ErrInvalidDeviceID
	}

	storeDeleted := false
	var memberID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store, err := s.repo.FindStore(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if store == nil {
			return domain.ErrNotFound
		}
		member, err := s.repo.FindMember(ctx, tx, storeID, deviceID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}
		memberID = member.ID

		if member.Role == domain.RoleOwner {
			count, err := s.repo.CountMembers(ctx, tx, storeID)
			if err != nil {
				return err
			}
			if count > 1 {
				return domain.ErrOwnerMustDelete
			}
			storeDeleted = true
			return s.deleteStore(ctx, tx, storeID)
		}
		return s.repo.DeleteMember(ctx, tx, member.ID)
	})
	if err != nil {
		return err
	}

	log := obslogger.WithStore(obslogger.WithContext(ctx, s.log), storeID.String())
	if storeDeleted {
		s.forgetStore(ctx, storeID)
		log.Info("store deleted by last owner leaving")
		s.recordActivity(ctx, auditdomain.RecordRequest{
			StoreID:       storeID,
			ActorDeviceID: deviceID,
			Action:        auditdomain.ActionStoreDeleted,
			TargetID:      storeID.String(),
			Metadata:      map[string]any{"reason": "last_member_left"},
		})
		return nil
	}
	log.Info("store member left")
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:       storeID,
		ActorDeviceID: deviceID,
		Action:        auditdomain.ActionMemberLeft,
		TargetType:    auditdomain.TargetMember,
		TargetID:      memberID.String(),
	})
	return nil
}

func (s *Service) Delete(ctx context.Context, id, requesterDeviceID string) error {
	storeID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.authorizer.Authorize(ctx, requesterDeviceID, storeID.String(), authorization.ObjectStore, authorization.ActionStoreDelete); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.deleteStore(ctx, tx, storeID)
	})
	if err != nil {
		return err
	}

	s.forgetStore(ctx, storeID)
	obslogger.WithStore(obslogger.WithContext(ctx, s.log), storeID.String()).Info("store deleted")
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:       storeID,
		ActorDeviceID: requesterDeviceID,
		Action:        auditdomain.ActionStoreDeleted,
		TargetID:      storeID.String(),
	})
	return nil
}

func (s *Service) deleteStore(ctx context.Context, tx *gorm.DB, storeID snowflake.ID) error {
	if err := s.repo.DetachStoreData(ctx, tx, storeID); err != nil {
		return err
	}
	return s.repo.DeleteStore(ctx, tx, storeID)
}

func (s *Service) forgetStore(ctx context.Context, storeID snowflake.ID) {
	cleaner, ok := s.authorizer.(authorization.StoreCleaner)
	if !ok {
		return
	}
	if err := cleaner.ForgetStore(ctx, storeID.String()); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("failed to drop store role links",
			zap.String("store_id", storeID.String()),
			zap.Error(err),
		)
	}
}

// TransferOwnership hands the owner role to another member; the previous
// owner stays on as a member.
func (s *Service) TransferOwnership(ctx context.Context, req domain.TransferRequest) (domain.Member, error) {
	storeID, err := parseID(req.StoreID)
	if err != nil {
		return domain.Member{}, domain.ErrInvalidID
	}
	targetID, err := parseID(req.TargetMemberID)
	if err != nil {
		return domain.Member{}, domain.ErrInvalidMemberID
	}
	if _, err := s.Get(ctx, req.StoreID); err != nil {
		return domain.Member{}, err
	}
	if err := s.authorizer.Authorize(ctx, req.RequesterDeviceID, storeID.String(), authorization.ObjectStore, authorization.ActionStoreTransfer); err != nil {
		return domain.Member{}, err
	}

	var current, target *domain.Member
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err = s.repo.FindMember(ctx, tx, storeID, strings.TrimSpace(req.RequesterDeviceID))
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrMemberNotFound
		}
		target, err = s.repo.FindMemberByID(ctx, tx, storeID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.ErrMemberNotFound
		}
		if target.ID == current.ID {
			return domain.ErrInvalidTransfer
		}

		if err := s.repo.UpdateMember(ctx, tx, current.ID, map[string]any{"role": domain.RoleMember}); err != nil {
			return err
		}
		if err := s.repo.UpdateMember(ctx, tx, target.ID, map[string]any{"role": domain.RoleOwner}); err != nil {
			return err
		}
		target.Role = domain.RoleOwner
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}

	obslogger.WithStore(obslogger.WithContext(ctx, s.log), storeID.String()).Info("store ownership transferred",
		zap.String("member_id", target.ID.String()),
	)
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:       storeID,
		ActorDeviceID: req.RequesterDeviceID,
		Action:        auditdomain.ActionOwnershipTransferred,
		TargetType:    auditdomain.TargetMember,
		TargetID:      target.ID.String(),
		Metadata:      map[string]any{"previous_owner_id": current.ID.String()},
	})
	return *target, nil
}

func (s *Service) UpdateNickname(ctx context.Context, id, deviceID, nickname string) (domain.Member, error) {
	storeID, err := parseID(id)
	if err != nil {
		return domain.Member{}, domain.ErrInvalidID
	}
	normalized, err := normalizeNickname(nickname)
	if err != nil {
		return domain.Member{}, err
	}

	member, err := s.repo.FindMember(ctx, s.db, storeID, strings.TrimSpace(deviceID))
	if err != nil {
		return domain.Member{}, err
	}
	if member == nil {
		return domain.Member{}, domain.ErrMemberNotFound
	}
	if err := s.repo.UpdateMember(ctx, s.db, member.ID, map[string]any{"nickname": normalized}); err != nil {
		return domain.Member{}, err
	}
	member.Nickname = normalized
	s.recordActivity(ctx, auditdomain.RecordRequest{
		StoreID:       storeID,
		ActorDeviceID: member.DeviceID,
		Action:        auditdomain.ActionNicknameUpdated,
		TargetType:    auditdomain.TargetMember,
		TargetID:      member.ID.String(),
		Metadata:      map[string]any{"nickname": normalized},
	})
	return *member, nil
}

// recordActivity never fails the caller; the activity service logs write errors.
func (s *Service) recordActivity(ctx context.Context, req auditdomain.RecordRequest) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, req)
}

func normalizeNickname(value string) (string, error) {
	nickname := strings.TrimSpace(value)
	if nickname == "" || utf8.RuneCountInString(nickname) > domain.MaxNickLength {
		return "", domain.ErrInvalidNickname
	}
	return nickname, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
