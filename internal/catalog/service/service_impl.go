package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/shelflife/internal/cache"
	"github.com/smallbiznis/shelflife/internal/catalog/domain"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
	Cache cache.ProductCache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
	cache cache.ProductCache
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		clock: p.Clock,
		repo:  p.Repo,
		cache: p.Cache,
	}
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (domain.Product, error) {
	product, err := s.upsert(ctx, s.db, req)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Lost an insert race on a new barcode; the row exists now.
		product, err = s.upsert(ctx, s.db, req)
	}
	if err != nil {
		return domain.Product{}, err
	}
	if s.cache != nil {
		s.cache.SetProduct(product)
	}
	return product, nil
}

func (s *Service) UpsertTx(ctx context.Context, tx *gorm.DB, req domain.UpsertRequest) (domain.Product, error) {
	product, err := s.upsert(ctx, tx, req)
	if err != nil {
		return domain.Product{}, err
	}
	if s.cache != nil {
		s.cache.InvalidateProduct(product.Barcode)
	}
	return product, nil
}

func (s *Service) upsert(ctx context.Context, conn *gorm.DB, req domain.UpsertRequest) (domain.Product, error) {
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return domain.Product{}, domain.ErrInvalidBarcode
	}
	name := strings.TrimSpace(req.Name)
	category := trimOptional(req.Category)
	imageURL := trimOptional(req.ImageURL)
	now := s.clock.Now()

	existing, err := s.repo.FindByBarcode(ctx, conn, barcode)
	if err != nil {
		return domain.Product{}, err
	}

	if existing == nil {
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product := domain.Product{
			Barcode:   barcode,
			Name:      name,
			Category:  category,
			ImageURL:  imageURL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, conn, &product); err != nil {
			return domain.Product{}, err
		}
		return product, nil
	}

	// Absent values never clear what is already stored.
	fields := map[string]any{"updated_at": now}
	if name != "" {
		fields["name"] = name
		existing.Name = name
	}
	if category != nil {
		fields["category"] = *category
		existing.Category = category
	}
	if imageURL != nil {
		fields["image_url"] = *imageURL
		existing.ImageURL = imageURL
	}
	if err := s.repo.UpdateFields(ctx, conn, barcode, fields); err != nil {
		return domain.Product{}, err
	}
	existing.UpdatedAt = now
	return *existing, nil
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, domain.ErrInvalidBarcode
	}
	if s.cache != nil {
		if product, ok := s.cache.GetProduct(barcode); ok {
			return product, nil
		}
	}

	item, err := s.repo.FindByBarcode(ctx, s.db, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	if s.cache != nil {
		s.cache.SetProduct(*item)
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) ([]domain.Product, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListProductFilter{
		Query:    strings.TrimSpace(req.Query),
		Category: strings.TrimSpace(req.Category),
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}
	return products, nil
}

// trimOptional treats blank strings the same as absent ones.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
