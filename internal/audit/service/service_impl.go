package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	"github.com/smallbiznis/shelflife/internal/clock"
	obscontext "github.com/smallbiznis/shelflife/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func New(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req auditdomain.RecordRequest) error {
	action := auditdomain.Action(strings.TrimSpace(string(req.Action)))
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	if req.StoreID == 0 {
		return auditdomain.ErrInvalidStoreID
	}

	targetType := strings.TrimSpace(req.TargetType)
	if targetType == "" {
		targetType = auditdomain.TargetStore
	}

	payload := map[string]any{}
	for key, value := range req.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := auditdomain.ActivityLog{
		ID:            s.genID.Generate(),
		StoreID:       req.StoreID,
		ActorDeviceID: s.resolveActor(ctx, req.ActorDeviceID),
		Action:        action,
		TargetType:    targetType,
		TargetID:      normalize(req.TargetID),
		CreatedAt:     s.clock.Now().UTC(),
	}
	if len(payload) > 0 {
		entry.Metadata = datatypes.JSONMap(payload)
	}
	entry.IPAddress = normalize(obscontext.ClientIPFromContext(ctx))

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write activity log",
			zap.String("action", string(action)),
			zap.String("store_id", req.StoreID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	storeID, err := snowflake.ParseString(strings.TrimSpace(req.StoreID))
	if err != nil || storeID == 0 {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidStoreID
	}

	var before snowflake.ID
	if cursor := strings.TrimSpace(req.Before); cursor != "" {
		before, err = snowflake.ParseString(cursor)
		if err != nil || before == 0 {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidCursor
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = auditdomain.DefaultPageSize
	}
	if pageSize > auditdomain.MaxPageSize {
		pageSize = auditdomain.MaxPageSize
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		StoreID:  storeID,
		Action:   req.Action,
		BeforeID: before,
		Limit:    pageSize,
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	resp := auditdomain.ListResponse{Activity: make([]auditdomain.ActivityLog, 0, len(items))}
	hasMore := len(items) > pageSize
	if hasMore {
		items = items[:pageSize]
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Activity = append(resp.Activity, *item)
	}
	if hasMore && len(resp.Activity) > 0 {
		resp.NextCursor = resp.Activity[len(resp.Activity)-1].ID.String()
	}
	return resp, nil
}

func (s *Service) resolveActor(ctx context.Context, deviceID string) *string {
	if actor := normalize(deviceID); actor != nil {
		return actor
	}
	return normalize(obscontext.DeviceIDFromContext(ctx))
}

func normalize(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
