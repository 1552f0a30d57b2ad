package archive

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store interface {
	Save(ctx context.Context, rec *PollRecord) error
}

type GormStore struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the archive tables.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.AutoMigrate(&PollRecord{}, &OptionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save inserts the poll and its options in one transaction.
func (s *GormStore) Save(ctx context.Context, rec *PollRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("archive poll %s: %w", rec.ID, err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
