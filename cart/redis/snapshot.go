package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merchware/storefront/cart"
)

// snapshotKey is the fixed key shared by every load and save.
const snapshotKey = "storefront:cart"

// SnapshotRepository implements cart.SnapshotRepository using Redis.
// The snapshot is stored as a single JSON document under a fixed key.
type SnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotRepository creates a Redis-backed snapshot repository.
// A zero ttl keeps the snapshot forever.
func NewSnapshotRepository(client *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load retrieves the persisted cart snapshot. A missing key reports
// found=false; an undecodable value reports cart.ErrCorruptSnapshot.
func (r *SnapshotRepository) Load(ctx context.Context) (cart.Snapshot, bool, error) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return cart.EmptySnapshot(), false, nil
		}
		return cart.EmptySnapshot(), false, fmt.Errorf("redis get cart snapshot: %w", err)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return cart.EmptySnapshot(), false, fmt.Errorf("%w: %v", cart.ErrCorruptSnapshot, err)
	}

	return snap, true, nil
}

// Save persists the cart snapshot under the fixed key.
func (r *SnapshotRepository) Save(ctx context.Context, snap cart.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart snapshot: %w", err)
	}

	return nil
}
