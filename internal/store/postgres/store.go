// Package postgres adapts the authoritative articles table to the
// RecordStore contract. The table is owned by the crawler and the
// summarization job; this layer only reads it.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anduriroshan/MedScraper/internal/domain"
)

// Config holds connection settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store reads article records from Postgres through a pooled connection,
// safe for concurrent searches.
type Store struct {
	db *gorm.DB
}

// articleRow maps the articles table.
type articleRow struct {
	ID       int64     `gorm:"column:id;primaryKey"`
	Title    string    `gorm:"column:title"`
	PubDate  time.Time `gorm:"column:pub_date"`
	Abstract string    `gorm:"column:abstract"`
	Link     string    `gorm:"column:link"`
	Summary  string    `gorm:"column:summary"`
	Keywords string    `gorm:"column:keywords"`
}

func (articleRow) TableName() string { return "articles" }

// New opens the connection pool and verifies it with a bounded ping.
func New(cfg Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, unavailable("open database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, unavailable("ping database", err)
	}

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies store availability.
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// FetchByIDsInRange returns records whose id is in ids and whose
// publication date falls inside r (inclusive), ordered by publication
// date descending. An empty id set returns immediately without touching
// the database: without the IN clause the query would degenerate into a
// full-table fetch. Ordering is purely temporal; similarity rank from the
// candidate stage is never reapplied here.
func (s *Store) FetchByIDsInRange(ctx context.Context, ids []int64, r domain.DateRange) ([]domain.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []articleRow
	err := s.db.WithContext(ctx).
		Where("id IN ? AND pub_date BETWEEN ? AND ?", ids, r.Start, r.End).
		Order("pub_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("fetch articles", err)
	}

	records := make([]domain.Record, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// ListArticles pages through all articles by ascending id, for the offline
// index builder. afterID 0 starts from the beginning.
func (s *Store) ListArticles(ctx context.Context, afterID int64, limit int) ([]domain.Record, error) {
	var rows []articleRow
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("list articles", err)
	}

	records := make([]domain.Record, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

func (r articleRow) record() domain.Record {
	return domain.Record{
		ID:       r.ID,
		Title:    r.Title,
		PubDate:  r.PubDate,
		Abstract: r.Abstract,
		Link:     r.Link,
		Summary:  r.Summary,
		Keywords: r.Keywords,
	}
}

// unavailable classifies a transport failure, keeping timeouts
// distinguishable from other store faults.
func unavailable(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, domain.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStoreUnavailable)
}
