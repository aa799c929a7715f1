package store

import (
	"context"

	"gorm.io/gorm"
)

// Batch collects writes that commit all-or-nothing
type Batch struct {
	db  *gorm.DB
	ops []func(tx *gorm.DB) error
}

// NewBatch starts an empty batch
func (s *Store) NewBatch() *Batch {
	return &Batch{db: s.db}
}

// Create queues an insert
func (b *Batch) Create(value any) *Batch {
	b.ops = append(b.ops, func(tx *gorm.DB) error {
		return tx.Create(value).Error
	})
	return b
}

// UpdateWhere queues a partial update of every model row matching query
func (b *Batch) UpdateWhere(model any, fields map[string]any, query any, args ...any) *Batch {
	b.ops = append(b.ops, func(tx *gorm.DB) error {
		return tx.Model(model).Where(query, args...).Updates(fields).Error
	})
	return b
}

// Len returns the number of queued writes
func (b *Batch) Len() int {
	return len(b.ops)
}

// Commit applies every queued write in one transaction. An empty batch is a no-op.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
