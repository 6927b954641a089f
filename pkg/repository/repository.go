// Package repository provides a small generic gorm store for domain records.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is a typed CRUD surface over a single gorm model.
type Repository[T any] interface {
	Insert(ctx context.Context, db *gorm.DB, record *T) error
	Save(ctx context.Context, db *gorm.DB, record *T) error
	Delete(ctx context.Context, db *gorm.DB, conds ...any) error
	FindOne(ctx context.Context, db *gorm.DB, conds ...any) (*T, error)
	FindAll(ctx context.Context, db *gorm.DB, conds ...any) ([]T, error)
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore builds a Repository bound to the given connection. All methods
// accept an explicit db handle so callers can pass a transaction; nil falls
// back to the bound connection.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) handle(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return s.db
}

func (s *store[T]) Insert(ctx context.Context, db *gorm.DB, record *T) error {
	return s.handle(db).WithContext(ctx).Create(record).Error
}

func (s *store[T]) Save(ctx context.Context, db *gorm.DB, record *T) error {
	return s.handle(db).WithContext(ctx).Save(record).Error
}

func (s *store[T]) Delete(ctx context.Context, db *gorm.DB, conds ...any) error {
	var zero T
	return s.handle(db).WithContext(ctx).Delete(&zero, conds...).Error
}

func (s *store[T]) FindOne(ctx context.Context, db *gorm.DB, conds ...any) (*T, error) {
	var record T
	err := s.handle(db).WithContext(ctx).First(&record, conds...).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) FindAll(ctx context.Context, db *gorm.DB, conds ...any) ([]T, error) {
	var records []T
	if err := s.handle(db).WithContext(ctx).Find(&records, conds...).Error; err != nil {
		return nil, err
	}
	return records, nil
}
