// Package archive persists one row of UPS readings per host archive cycle
// into a dedicated sqlite time-series database.
package archive

import (
	"context"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// UpsRecord is one archive cycle. Reading columns are nullable: a field that
// errored or was unmapped in a cycle stays NULL rather than failing the row.
type UpsRecord struct {
	DateTime       int64    `gorm:"column:dateTime;primaryKey"`
	UsUnits        int      `gorm:"column:usUnits"`
	Interval       int      `gorm:"column:interval"`
	UpsTemperature *float64 `gorm:"column:ups_temperature"`
	UpsCharge      *float64 `gorm:"column:ups_charge"`
	UpsVoltage     *float64 `gorm:"column:ups_voltage"`
	UpsCurrent     *float64 `gorm:"column:ups_current"`
	UpsIoVoltage   *float64 `gorm:"column:ups_io_voltage"`
	UpsIoCurrent   *float64 `gorm:"column:ups_io_current"`
}

func (UpsRecord) TableName() string { return "archive" }

// Store wraps the sqlite archive database.
type Store struct {
	orm *gorm.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	g, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := g.AutoMigrate(&UpsRecord{}); err != nil {
		_ = closeORM(g)
		return nil, err
	}
	return &Store{orm: g}, nil
}

// Save appends one archive row.
func (s *Store) Save(ctx context.Context, rec *UpsRecord) error {
	return s.orm.WithContext(ctx).Create(rec).Error
}

// Latest returns up to limit rows, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]UpsRecord, error) {
	var rows []UpsRecord
	q := s.orm.WithContext(ctx).Order("dateTime DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) Close() error { return closeORM(s.orm) }

func closeORM(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
