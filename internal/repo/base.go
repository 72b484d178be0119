package repo

import (
	"context"

	"github.com/flintflours/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Base is embedded by repositories that scope every query to a context and
// may be rebound to a transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx; a nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a copy bound to tx, or b itself when tx is nil.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Paginate is a gorm scope applying the page's limit and offset.
func Paginate(p pagination.Params) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Limit(p.Limit).Offset(p.Offset())
	}
}
