package gormapi

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sakugaworks/cutflow/internal/config"
	"github.com/sakugaworks/cutflow/internal/cut"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dialect selects the gorm dialector for the remote mirror database.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
			cfg.DBSSLMode,
		)), nil
	case "sqlite":
		return sqlite.Open(fmt.Sprintf("%s/remote.db", cfg.DataDir)), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

// API persists records to the mirror table through gorm, standing in for
// the hosting platform's record API.
type API struct {
	db *gorm.DB
}

// Open connects and migrates the records table.
func Open(dialector gorm.Dialector) (*API, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&cut.Record{}); err != nil {
		return nil, err
	}
	return &API{db: db}, nil
}

// NewWithDB wraps an existing gorm connection, for tests.
func NewWithDB(db *gorm.DB) (*API, error) {
	if err := db.AutoMigrate(&cut.Record{}); err != nil {
		return nil, err
	}
	return &API{db: db}, nil
}

func (a *API) UpsertRecord(ctx context.Context, rec *cut.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("invalid record for upsert")
	}
	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec.Clone()).Error
}

func (a *API) DeleteRecord(ctx context.Context, id string) error {
	return a.db.WithContext(ctx).Delete(&cut.Record{}, "id = ?", id).Error
}
