package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/expiry"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
	"gorm.io/gorm"
)

const (
	DemoStoreName = "Demo Shop"
	DemoStoreCode = "DEMX23"
	DemoDeviceID  = "demo-device"
	demoOwnerNick = "Demo Owner"
)

type sampleProduct struct {
	barcode  string
	name     string
	category string
	// days until expiry, relative to the seeding day
	expiresIn int
	quantity  int
}

var sampleProducts = []sampleProduct{
	{barcode: "8991002101630", name: "Fresh Milk 1L", category: "Dairy", expiresIn: -1, quantity: 2},
	{barcode: "8992761111113", name: "Plain Yogurt", category: "Dairy", expiresIn: 0, quantity: 6},
	{barcode: "8996001600146", name: "White Bread", category: "Bakery", expiresIn: 2, quantity: 4},
	{barcode: "8998866200301", name: "Chicken Sausage", category: "Frozen", expiresIn: 6, quantity: 3},
	{barcode: "8992388101019", name: "Orange Juice", category: "Beverages", expiresIn: 14, quantity: 5},
	{barcode: "8886008101053", name: "Instant Noodles", category: "Pantry", expiresIn: 120, quantity: 24},
}

// EnsureSampleData seeds a catalog, a demo store owned by DemoDeviceID and a
// spread of entries across every expiry status. Existing rows are left alone,
// so it is safe to run on every start.
func EnsureSampleData(db *gorm.DB, now time.Time) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCatalogTx(ctx, tx, now); err != nil {
			return err
		}
		store, created, err := ensureDemoStoreTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		return ensureDemoEntriesTx(ctx, tx, node, store, now)
	})
}

func ensureCatalogTx(ctx context.Context, tx *gorm.DB, now time.Time) error {
	for _, sample := range sampleProducts {
		var existing catalogdomain.Product
		err := tx.WithContext(ctx).Where("barcode = ?", sample.barcode).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		category := sample.category
		product := catalogdomain.Product{
			Barcode:   sample.barcode,
			Name:      sample.name,
			Category:  &category,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureDemoStoreTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now time.Time) (storedomain.Store, bool, error) {
	var store storedomain.Store
	err := tx.WithContext(ctx).Where("code = ?", DemoStoreCode).First(&store).Error
	if err == nil {
		return store, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return storedomain.Store{}, false, err
	}

	store = storedomain.Store{
		ID:        node.Generate(),
		Name:      DemoStoreName,
		Slug:      slug.Make(DemoStoreName),
		Code:      DemoStoreCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&store).Error; err != nil {
		return storedomain.Store{}, false, err
	}

	owner := storedomain.Member{
		ID:       node.Generate(),
		StoreID:  store.ID,
		DeviceID: DemoDeviceID,
		Nickname: demoOwnerNick,
		Role:     storedomain.RoleOwner,
		JoinedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
		return storedomain.Store{}, false, err
	}
	return store, true, nil
}

func ensureDemoEntriesTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, store storedomain.Store, now time.Time) error {
	today := expiry.TruncateDay(now)
	storeID := store.ID
	for _, sample := range sampleProducts {
		category := sample.category
		expires := today.AddDate(0, 0, sample.expiresIn)
		entry := entrydomain.Entry{
			ID:             node.Generate(),
			Barcode:        sample.barcode,
			ProductName:    sample.name,
			Category:       &category,
			ExpirationDate: expires,
			Quantity:       sample.quantity,
			Status:         expiry.Classify(expires, today),
			StoreID:        &storeID,
			DeviceID:       DemoDeviceID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}
