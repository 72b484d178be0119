package cron

import (
	"context"
	"errors"
	"time"
)

// ExpiringOrders is the slice of orders.Repository the expiry job needs.
type ExpiringOrders interface {
	CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PrunableCarts is the slice of cart.Repository the prune job needs.
type PrunableCarts interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderExpiryJob cancels orders that were never paid within ttl.
type OrderExpiryJob struct {
	orders ExpiringOrders
	ttl    time.Duration
	now    func() time.Time
}

func NewOrderExpiryJob(orders ExpiringOrders, ttl time.Duration) (*OrderExpiryJob, error) {
	if orders == nil {
		return nil, errors.New("orders repository required")
	}
	if ttl <= 0 {
		return nil, errors.New("unpaid order ttl must be positive")
	}
	return &OrderExpiryJob{orders: orders, ttl: ttl, now: time.Now}, nil
}

func (j *OrderExpiryJob) Name() string { return "order_expiry" }

func (j *OrderExpiryJob) Run(ctx context.Context) (int64, error) {
	return j.orders.CancelPendingBefore(ctx, j.now().UTC().Add(-j.ttl))
}

// CartPruneJob deletes server cart lines untouched for ttl.
type CartPruneJob struct {
	carts PrunableCarts
	ttl   time.Duration
	now   func() time.Time
}

func NewCartPruneJob(carts PrunableCarts, ttl time.Duration) (*CartPruneJob, error) {
	if carts == nil {
		return nil, errors.New("cart repository required")
	}
	if ttl <= 0 {
		return nil, errors.New("stale cart ttl must be positive")
	}
	return &CartPruneJob{carts: carts, ttl: ttl, now: time.Now}, nil
}

func (j *CartPruneJob) Name() string { return "cart_prune" }

func (j *CartPruneJob) Run(ctx context.Context) (int64, error) {
	return j.carts.PruneBefore(ctx, j.now().UTC().Add(-j.ttl))
}
