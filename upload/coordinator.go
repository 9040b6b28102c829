package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/merchware/storefront/gateway"
)

var (
	// ErrNoFilesSelected is returned when a batch upload is requested
	// with an empty file sequence. No gateway call is made.
	ErrNoFilesSelected = errors.New("no files selected")

	// ErrUploadFailed is returned when any file in the batch fails.
	// Files already uploaded under the batch id are not rolled back; the
	// batch is simply orphaned on the backend.
	ErrUploadFailed = errors.New("image upload failed")
)

// FileUploader submits a single file tagged with a batch id.
// gateway.Client satisfies this.
type FileUploader interface {
	UploadFile(ctx context.Context, file gateway.File, batchID string) (*gateway.BlobDescriptor, error)
}

// Coordinator fans a batch of files out to the gateway under one freshly
// generated batch id and fans back in once every submission has settled.
type Coordinator struct {
	uploader FileUploader
	logger   *slog.Logger
}

// NewCoordinator creates an upload coordinator.
func NewCoordinator(uploader FileUploader, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		uploader: uploader,
		logger:   logger,
	}
}

// UploadBatch uploads all files concurrently under one batch id and waits
// for every submission to complete. On success it returns the result of the
// last file in input order, which stands in for the whole batch. Partial
// completion is never observed by the caller.
func (c *Coordinator) UploadBatch(ctx context.Context, files []gateway.File) (*gateway.BlobDescriptor, error) {
	if len(files) == 0 {
		return nil, ErrNoFilesSelected
	}

	batchID := uuid.New().String()
	results := make([]*gateway.BlobDescriptor, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			blob, err := c.uploader.UploadFile(gctx, file, batchID)
			if err != nil {
				return fmt.Errorf("upload %q: %w", file.Name, err)
			}
			results[i] = blob
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.ErrorContext(ctx, "image batch upload failed",
			slog.String("batch_id", batchID),
			slog.Int("files", len(files)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: batch %s: %v", ErrUploadFailed, batchID, err)
	}

	c.logger.InfoContext(ctx, "image batch uploaded",
		slog.String("batch_id", batchID),
		slog.Int("files", len(files)),
	)

	return results[len(results)-1], nil
}
