package cart

import (
	"context"
	"errors"
)

// ErrCorruptSnapshot is returned by a repository when a stored snapshot
// exists but cannot be decoded. The store treats it as an absent snapshot
// and starts from an empty cart.
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

// SnapshotRepository persists the cart snapshot under a single fixed key.
type SnapshotRepository interface {
	// Load retrieves the stored snapshot. found is false when no snapshot
	// has been saved yet.
	Load(ctx context.Context) (snapshot Snapshot, found bool, err error)

	// Save persists the snapshot, overwriting any previous one.
	Save(ctx context.Context, snapshot Snapshot) error
}
