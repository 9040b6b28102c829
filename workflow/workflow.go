// Package workflow drives product creation as an explicit state machine:
// image upload, product create, then any number of variant creates against
// the stored product id. A Workflow is owned by a single caller goroutine.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/merchware/storefront/gateway"
	apperrors "github.com/merchware/storefront/pkg/errors"
	"github.com/merchware/storefront/pkg/validator"
	"github.com/merchware/storefront/upload"
)

// Workflow state constants.
const (
	StateIdle            = "idle"
	StateUploading       = "uploading"
	StateCreatingProduct = "creating_product"
	StateProductReady    = "product_ready"
	StateCreatingVariant = "creating_variant"
	StateFailed          = "failed"
)

// Stage name constants carried by the failed state.
const (
	StageUpload        = "upload"
	StageCreateProduct = "create_product"
)

var (
	// ErrNotReady is returned when an operation is attempted from a state
	// that does not admit it.
	ErrNotReady = errors.New("workflow is not in a state that allows this operation")

	// ErrProductCreateFailed is returned when the product create call fails
	// or answers with anything but 201. The workflow enters the failed state.
	ErrProductCreateFailed = errors.New("product creation failed")

	// ErrVariantCreateFailed is returned when one variant submission fails.
	// The workflow returns to product_ready; later submissions are unaffected.
	ErrVariantCreateFailed = errors.New("variant creation failed")
)

// Gateway is the backend surface the workflow drives.
type Gateway interface {
	GetCategories(ctx context.Context) ([]gateway.Category, error)
	GetSubCategories(ctx context.Context, categoryID string) ([]gateway.SubCategory, error)
	CreateProduct(ctx context.Context, payload gateway.ProductPayload) (*gateway.Product, error)
	CreateVariant(ctx context.Context, payload gateway.VariantPayload) (*gateway.Variant, error)
}

// Uploader submits a file batch and resolves it to a single descriptor.
type Uploader interface {
	UploadBatch(ctx context.Context, files []gateway.File) (*gateway.BlobDescriptor, error)
}

// ProductDraft holds the user-entered product fields pending submission.
type ProductDraft struct {
	Title         string  `validate:"required"`
	SKU           string  `validate:"required"`
	Weight        float64 `validate:"required,gte=1"`
	CategoryID    string  `validate:"required"`
	SubCategoryID string  `validate:"required"`
}

// VariantDraft holds the user-entered variant fields pending submission.
// ProductID is set by the workflow, never by the caller.
type VariantDraft struct {
	ProductID       string          `validate:"required"`
	VariantType     string          `validate:"required"`
	Description     string          `validate:"required"`
	QuantityInStock int             `validate:"required,gte=1"`
	UnitPrice       decimal.Decimal `validate:"-"`
}

// Workflow is the product creation state machine. It is not safe for
// concurrent use; a storefront session drives exactly one at a time.
type Workflow struct {
	gw       Gateway
	uploader Uploader
	logger   *slog.Logger

	state       string
	failedStage string
	lastErr     error

	categories    []gateway.Category
	subCategories []gateway.SubCategory
	categoryID    string
	subCategoryID string

	files   []gateway.File
	product *gateway.Product

	variants     []gateway.Variant
	variantDraft VariantDraft
}

// New creates a workflow in the idle state.
func New(gw Gateway, uploader Uploader, logger *slog.Logger) *Workflow {
	return &Workflow{
		gw:       gw,
		uploader: uploader,
		logger:   logger,
		state:    StateIdle,
	}
}

// LoadCategories fetches the top-level categories. A failure leaves the
// previously loaded list in place.
func (w *Workflow) LoadCategories(ctx context.Context) ([]gateway.Category, error) {
	categories, err := w.gw.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	w.categories = categories
	return categories, nil
}

// SelectCategory records the category selection and reloads the dependent
// sub-category list. The sub-category selection is always cleared, so a
// stale selection can never outlive its parent. A fetch failure is a
// soft-fail: the previous sub-category LIST stays usable.
func (w *Workflow) SelectCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return apperrors.InvalidInput("category id is required")
	}

	w.categoryID = categoryID
	w.subCategoryID = ""

	subs, err := w.gw.GetSubCategories(ctx, categoryID)
	if err != nil {
		w.logger.WarnContext(ctx, "sub-category fetch failed, keeping previous list",
			slog.String("category_id", categoryID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	w.subCategories = subs
	return nil
}

// SelectSubCategory records the sub-category selection.
func (w *Workflow) SelectSubCategory(subCategoryID string) error {
	if subCategoryID == "" {
		return apperrors.InvalidInput("sub-category id is required")
	}
	w.subCategoryID = subCategoryID
	return nil
}

// SelectImages replaces the pending image selection.
func (w *Workflow) SelectImages(files []gateway.File) {
	w.files = files
}

// FieldsLocked reports whether the product-identifying fields are frozen.
// Once a product exists its scalar fields and category pair never change.
func (w *Workflow) FieldsLocked() bool {
	return w.state == StateProductReady || w.state == StateCreatingVariant
}

// SubmitProduct runs the upload and product create stages. It is allowed
// from idle and from failed; re-entry after a failure starts over with a
// full re-upload under a fresh batch id.
func (w *Workflow) SubmitProduct(ctx context.Context, draft ProductDraft) (*gateway.Product, error) {
	if w.state != StateIdle && w.state != StateFailed {
		return nil, fmt.Errorf("%w: submit product from %s", ErrNotReady, w.state)
	}

	draft.CategoryID = w.categoryID
	draft.SubCategoryID = w.subCategoryID
	if err := validator.Validate(draft); err != nil {
		return nil, err
	}
	if len(w.files) == 0 {
		return nil, upload.ErrNoFilesSelected
	}

	w.state = StateUploading
	w.failedStage = ""
	w.lastErr = nil
	stageStarted(StageUpload)

	blob, err := w.uploader.UploadBatch(ctx, w.files)
	if err != nil {
		w.fail(ctx, StageUpload, err)
		return nil, err
	}
	stageSucceeded(StageUpload)

	w.state = StateCreatingProduct
	stageStarted(StageCreateProduct)

	product, err := w.gw.CreateProduct(ctx, gateway.ProductPayload{
		Title:         draft.Title,
		SKU:           draft.SKU,
		Weight:        draft.Weight,
		CategoryID:    draft.CategoryID,
		SubCategoryID: draft.SubCategoryID,
		Images:        blob,
	})
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrProductCreateFailed, err)
		w.fail(ctx, StageCreateProduct, wrapped)
		return nil, wrapped
	}
	stageSucceeded(StageCreateProduct)

	w.product = product
	w.variantDraft = VariantDraft{ProductID: product.ID}
	w.state = StateProductReady

	w.logger.InfoContext(ctx, "product workflow ready",
		slog.String("product_id", product.ID),
		slog.String("sku", product.SKU),
	)

	return product, nil
}

// SubmitVariant validates and submits one variant against the stored
// product. A failed submission reports its error and returns the workflow
// to product_ready with the accumulated list untouched; it never blocks a
// later submission and never invalidates the product.
func (w *Workflow) SubmitVariant(ctx context.Context, draft VariantDraft) (*gateway.Variant, error) {
	if w.state != StateProductReady {
		return nil, fmt.Errorf("%w: submit variant from %s", ErrNotReady, w.state)
	}

	draft.ProductID = w.product.ID
	if err := validator.Validate(draft); err != nil {
		return nil, err
	}
	if draft.UnitPrice.LessThan(decimal.NewFromInt(1)) {
		return nil, apperrors.InvalidInput("unit price must be at least 1")
	}

	w.state = StateCreatingVariant
	defer func() { w.state = StateProductReady }()

	variant, err := w.gw.CreateVariant(ctx, gateway.VariantPayload{
		ProductID:       draft.ProductID,
		VariantType:     draft.VariantType,
		Description:     draft.Description,
		QuantityInStock: draft.QuantityInStock,
		UnitPrice:       draft.UnitPrice,
	})
	if err != nil {
		variantFailed()
		w.logger.ErrorContext(ctx, "variant submission failed",
			slog.String("product_id", draft.ProductID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrVariantCreateFailed, err)
	}
	variantSucceeded()

	w.variants = append(w.variants, *variant)
	w.variantDraft = VariantDraft{ProductID: w.product.ID}

	return variant, nil
}

// Reset returns the workflow to idle, clearing the product, the variant
// list, the image selection and both category selections. The cart is a
// separate store and is never touched.
func (w *Workflow) Reset() {
	w.state = StateIdle
	w.failedStage = ""
	w.lastErr = nil
	w.categoryID = ""
	w.subCategoryID = ""
	w.subCategories = nil
	w.files = nil
	w.product = nil
	w.variants = nil
	w.variantDraft = VariantDraft{}
}

func (w *Workflow) fail(ctx context.Context, stage string, err error) {
	w.state = StateFailed
	w.failedStage = stage
	w.lastErr = err
	stageFailed(stage)
	w.logger.ErrorContext(ctx, "product workflow failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// State reports the current workflow state constant.
func (w *Workflow) State() string { return w.state }

// FailedStage reports the stage recorded by the failed state, or "".
func (w *Workflow) FailedStage() string { return w.failedStage }

// Err reports the error recorded by the failed state, or nil.
func (w *Workflow) Err() error { return w.lastErr }

// Product returns the created product, or nil before product_ready.
func (w *Workflow) Product() *gateway.Product {
	if w.product == nil {
		return nil
	}
	cpy := *w.product
	return &cpy
}

// Variants returns a copy of the accumulated variant list in arrival order.
func (w *Workflow) Variants() []gateway.Variant {
	out := make([]gateway.Variant, len(w.variants))
	copy(out, w.variants)
	return out
}

// VariantDraftTemplate returns a fresh draft keyed to the current product.
func (w *Workflow) VariantDraftTemplate() VariantDraft { return w.variantDraft }

// SelectedCategory reports the current category and sub-category selection.
func (w *Workflow) SelectedCategory() (categoryID, subCategoryID string) {
	return w.categoryID, w.subCategoryID
}

// SubCategories returns the currently loaded sub-category list.
func (w *Workflow) SubCategories() []gateway.SubCategory {
	out := make([]gateway.SubCategory, len(w.subCategories))
	copy(out, w.subCategories)
	return out
}
