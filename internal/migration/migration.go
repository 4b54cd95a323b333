package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	batchdomain "github.com/smallbiznis/shelflife/internal/batch/domain"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	dailycheckdomain "github.com/smallbiznis/shelflife/internal/dailycheck/domain"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	notificationdomain "github.com/smallbiznis/shelflife/internal/notification/domain"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Product{},
		&storedomain.Store{},
		&storedomain.Member{},
		&entrydomain.Entry{},
		&batchdomain.BatchSession{},
		&batchdomain.BatchItem{},
		&dailycheckdomain.Session{},
		&dailycheckdomain.Item{},
		&notificationdomain.PushToken{},
		&notificationdomain.Schedule{},
		&notificationdomain.Receipt{},
		&auditdomain.ActivityLog{},
	}
}

// Run applies the versioned SQL schema on postgres and falls back to GORM
// AutoMigrate for the other dialects.
func Run(conn *gorm.DB, dialect string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	default:
		return conn.AutoMigrate(Models()...)
	}
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
