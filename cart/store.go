package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Store owns the authoritative in-memory cart state. It is explicitly
// constructed and loaded via Initialize rather than at import time, so
// lifecycle and test isolation stay explicit.
//
// All mutations funnel through AddToCart and RemoveFromCart; each mutation
// triggers exactly one write-through save of the full snapshot.
type Store struct {
	mu          sync.RWMutex
	repo        SnapshotRepository
	logger      *slog.Logger
	snap        Snapshot
	initialized bool
}

// NewStore creates a cart store backed by the given snapshot repository.
// Call Initialize before use.
func NewStore(repo SnapshotRepository, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
		snap:   EmptySnapshot(),
	}
}

// Initialize loads the persisted snapshot once. An absent or corrupt
// snapshot yields an empty cart; corruption is logged, not fatal.
// Initialize is idempotent: subsequent calls are no-ops.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	snap, found, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptSnapshot):
		s.logger.WarnContext(ctx, "stored cart snapshot is corrupt, starting empty",
			slog.String("error", err.Error()),
		)
		s.snap = EmptySnapshot()
	case err != nil:
		return fmt.Errorf("load cart snapshot: %w", err)
	case !found:
		s.snap = EmptySnapshot()
	default:
		// Recompute rather than trust the stored total.
		snap.Total = ComputeTotal(snap.Items)
		s.snap = snap
	}

	s.initialized = true
	return nil
}

// AddToCart merges the item into the cart (see Add), persists the new
// snapshot and returns it. The in-memory state is committed even when the
// save fails, so the caller can retry persistence without losing the
// mutation.
func (s *Store) AddToCart(ctx context.Context, item LineItem) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = Add(s.snap, item)

	if err := s.repo.Save(ctx, s.snap); err != nil {
		return s.copySnapshot(), fmt.Errorf("save cart snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("variant_id", item.VariantID),
		slog.String("product_id", item.ProductID),
		slog.Int("items", len(s.snap.Items)),
		slog.String("total", s.snap.Total.String()),
	)

	return s.copySnapshot(), nil
}

// RemoveFromCart removes the line item with the given variant ID, persists
// the new snapshot and returns it. Removing a variant that is not in the
// cart is a no-op on the collection but still re-persists the snapshot.
func (s *Store) RemoveFromCart(ctx context.Context, variantID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = Remove(s.snap, variantID)

	if err := s.repo.Save(ctx, s.snap); err != nil {
		return s.copySnapshot(), fmt.Errorf("save cart snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("variant_id", variantID),
		slog.Int("items", len(s.snap.Items)),
		slog.String("total", s.snap.Total.String()),
	)

	return s.copySnapshot(), nil
}

// Snapshot returns a copy of the current cart state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copySnapshot()
}

// copySnapshot returns a defensive copy. Callers must hold at least a read lock.
func (s *Store) copySnapshot() Snapshot {
	items := make([]LineItem, len(s.snap.Items))
	copy(items, s.snap.Items)
	return Snapshot{Items: items, Total: s.snap.Total}
}
