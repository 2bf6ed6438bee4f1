package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matthieukhl/spatula/internal/database"
	"github.com/matthieukhl/spatula/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrNotSoftDeletable = errors.New("record cannot be soft-deleted")
	ErrValidation       = errors.New("validation failed")
)

// ValidationError lists the messages attached to each offending field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Messages returns "field msg" strings sorted by field.
func (e *ValidationError) Messages() []string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var msgs []string
	for _, f := range fields {
		for _, m := range e.Fields[f] {
			msgs = append(msgs, f+" "+m)
		}
	}
	return msgs
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Attributes is a whitelisted attribute set for entity T.
type Attributes[T any] interface {
	Apply(*T)
}

// Validator checks a record before it is written, inside the write's
// transaction.
type Validator[T any] func(tx *gorm.DB, rec *T) error

// Repository implements list/find/create/update/soft-delete for one entity.
type Repository[T any, P Attributes[T]] struct {
	db       *database.DB
	validate Validator[T]
}

func NewRepository[T any, P Attributes[T]](db *database.DB, validate Validator[T]) *Repository[T, P] {
	return &Repository[T, P]{db: db, validate: validate}
}

// List returns every non-deleted record in insertion order.
func (r *Repository[T, P]) List(ctx context.Context) ([]T, error) {
	var records []T
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Find loads a record by id, including soft-deleted ones.
func (r *Repository[T, P]) Find(ctx context.Context, id uint) (*T, error) {
	return find[T](r.db.WithContext(ctx), id)
}

func (r *Repository[T, P]) Create(ctx context.Context, params P) (*T, error) {
	var rec T
	params.Apply(&rec)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.check(tx, &rec); err != nil {
			return err
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repository[T, P]) Update(ctx context.Context, id uint, params P) (*T, error) {
	var rec *T
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = find[T](tx, id)
		if err != nil {
			return err
		}
		params.Apply(rec)
		if err := r.check(tx, rec); err != nil {
			return err
		}
		if err := tx.Unscoped().Save(rec).Error; err != nil {
			return fmt.Errorf("failed to update record %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SoftDelete flags the record as deleted. The row stays in place and remains
// reachable through Find. Deleting an already-deleted record is a no-op.
func (r *Repository[T, P]) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := find[T](tx, id)
		if err != nil {
			return err
		}
		sd, ok := any(rec).(models.SoftDeletable)
		if !ok {
			return ErrNotSoftDeletable
		}
		if sd.IsDeleted() {
			return nil
		}
		if err := tx.Delete(rec).Error; err != nil {
			return fmt.Errorf("failed to delete record %d: %w", id, err)
		}
		return nil
	})
}

func (r *Repository[T, P]) check(tx *gorm.DB, rec *T) error {
	if r.validate == nil {
		return nil
	}
	return r.validate(tx, rec)
}

func find[T any](tx *gorm.DB, id uint) (*T, error) {
	var rec T
	err := tx.Unscoped().First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record %d: %w", id, err)
	}
	return &rec, nil
}

// exists reports whether a row of T with the given id is present.
func exists[T any](tx *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := tx.Unscoped().Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check existence of %d: %w", id, err)
	}
	return count > 0, nil
}
