package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type kvRow struct {
	Key       string `gorm:"primaryKey;column:kv_key"`
	Value     string `gorm:"column:kv_value"`
	UpdatedAt time.Time
}

func (kvRow) TableName() string { return "local_kv" }

// Adapter stores keys in a single kv table through gorm.
type Adapter struct {
	db *gorm.DB
}

// Open connects with the supplied dialector and migrates the kv table.
func Open(dialector gorm.Dialector) (*Adapter, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&kvRow{}); err != nil {
		return nil, err
	}
	return &Adapter{db: db}, nil
}

// NewWithDB wraps an existing gorm connection, for tests.
func NewWithDB(db *gorm.DB) (*Adapter, error) {
	if err := db.AutoMigrate(&kvRow{}); err != nil {
		return nil, err
	}
	return &Adapter{db: db}, nil
}

func (a *Adapter) Save(ctx context.Context, key, value string) error {
	row := kvRow{Key: key, Value: value}
	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (a *Adapter) Load(ctx context.Context, key string) (string, bool, error) {
	var row kvRow
	err := a.db.WithContext(ctx).First(&row, "kv_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	return a.db.WithContext(ctx).Delete(&kvRow{}, "kv_key = ?", key).Error
}
