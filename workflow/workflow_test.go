package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/merchware/storefront/gateway"
	"github.com/merchware/storefront/pkg/validator"
	"github.com/merchware/storefront/upload"
)

// --- Mocks ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetCategories(ctx context.Context) ([]gateway.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.Category), args.Error(1)
}

func (m *mockGateway) GetSubCategories(ctx context.Context, categoryID string) ([]gateway.SubCategory, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.SubCategory), args.Error(1)
}

func (m *mockGateway) CreateProduct(ctx context.Context, payload gateway.ProductPayload) (*gateway.Product, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Product), args.Error(1)
}

func (m *mockGateway) CreateVariant(ctx context.Context, payload gateway.VariantPayload) (*gateway.Variant, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Variant), args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) UploadBatch(ctx context.Context, files []gateway.File) (*gateway.BlobDescriptor, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.BlobDescriptor), args.Error(1)
}

// --- Helpers ---

func newTestWorkflow(t *testing.T) (*Workflow, *mockGateway, *mockUploader) {
	t.Helper()
	gw := new(mockGateway)
	up := new(mockUploader)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(gw, up, logger), gw, up
}

func validDraft() ProductDraft {
	return ProductDraft{Title: "Watch", SKU: "W-1", Weight: 150}
}

func selectCategories(t *testing.T, w *Workflow, gw *mockGateway) {
	t.Helper()
	gw.On("GetSubCategories", mock.Anything, "c1").
		Return([]gateway.SubCategory{{ID: "s1", CategoryID: "c1", Name: "Analog"}}, nil).Once()
	require.NoError(t, w.SelectCategory(context.Background(), "c1"))
	require.NoError(t, w.SelectSubCategory("s1"))
}

func imageFiles() []gateway.File {
	return []gateway.File{{Name: "w.jpg", ContentType: "image/jpeg", Data: strings.NewReader("img")}}
}

var testBlob = &gateway.BlobDescriptor{BatchID: "b1", Name: "w.jpg", URL: "https://cdn.example.com/b1/w.jpg"}

// --- Tests ---

func TestSubmitProduct_HappyPath(t *testing.T) {
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())

	up.On("UploadBatch", mock.Anything, mock.Anything).Return(testBlob, nil).Once()
	gw.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p gateway.ProductPayload) bool {
		return p.Title == "Watch" && p.CategoryID == "c1" && p.SubCategoryID == "s1" && p.Images == testBlob
	})).Return(&gateway.Product{ID: "p1", Title: "Watch", SKU: "W-1"}, nil).Once()

	product, err := w.SubmitProduct(context.Background(), validDraft())

	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
	assert.Equal(t, StateProductReady, w.State())
	assert.True(t, w.FieldsLocked())
	assert.Equal(t, "p1", w.VariantDraftTemplate().ProductID)
	up.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestSubmitProduct_PassesThroughUploadingAndCreating(t *testing.T) {
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())

	var observed []string
	up.On("UploadBatch", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { observed = append(observed, w.State()) }).
		Return(testBlob, nil).Once()
	gw.On("CreateProduct", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { observed = append(observed, w.State()) }).
		Return(&gateway.Product{ID: "p1"}, nil).Once()

	_, err := w.SubmitProduct(context.Background(), validDraft())

	require.NoError(t, err)
	assert.Equal(t, []string{StateUploading, StateCreatingProduct}, observed)
	assert.Equal(t, StateProductReady, w.State())
}

func TestSubmitProduct_ValidationFailureStaysIdle(t *testing.T) {
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())

	_, err := w.SubmitProduct(context.Background(), ProductDraft{Title: "Watch"})

	require.Error(t, err)
	var verr *validator.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, StateIdle, w.State())
	up.AssertNotCalled(t, "UploadBatch", mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestSubmitProduct_WeightBelowOneRejected(t *testing.T) {
	w, gw, _ := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())

	draft := validDraft()
	draft.Weight = 0.5
	_, err := w.SubmitProduct(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, StateIdle, w.State())
}

func TestSubmitProduct_NoImagesSelected(t *testing.T) {
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)

	_, err := w.SubmitProduct(context.Background(), validDraft())

	assert.ErrorIs(t, err, upload.ErrNoFilesSelected)
	assert.Equal(t, StateIdle, w.State())
	up.AssertNotCalled(t, "UploadBatch", mock.Anything, mock.Anything)
}

func TestSubmitProduct_UploadFailure(t *testing.T) {
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())

	up.On("UploadBatch", mock.Anything, mock.Anything).
		Return(nil, upload.ErrUploadFailed).Once()

	_, err := w.SubmitProduct(context.Background(), validDraft())

	assert.ErrorIs(t, err, upload.ErrUploadFailed)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, StageUpload, w.FailedStage())
	gw.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestSubmitProduct_CreateFailure(t *testing.T) {
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())

	up.On("UploadBatch", mock.Anything, mock.Anything).Return(testBlob, nil).Once()
	gw.On("CreateProduct", mock.Anything, mock.Anything).
		Return(nil, errors.New("sku already exists")).Once()

	_, err := w.SubmitProduct(context.Background(), validDraft())

	assert.ErrorIs(t, err, ErrProductCreateFailed)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, StageCreateProduct, w.FailedStage())
	assert.ErrorIs(t, w.Err(), ErrProductCreateFailed)
	assert.Nil(t, w.Product())
}

func TestSubmitProduct_RetryAfterFailureReuploads(t *testing.T) {
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())

	up.On("UploadBatch", mock.Anything, mock.Anything).Return(testBlob, nil).Twice()
	gw.On("CreateProduct", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom")).Once()
	gw.On("CreateProduct", mock.Anything, mock.Anything).
		Return(&gateway.Product{ID: "p1"}, nil).Once()

	_, err := w.SubmitProduct(context.Background(), validDraft())
	require.Error(t, err)
	require.Equal(t, StateFailed, w.State())

	product, err := w.SubmitProduct(context.Background(), validDraft())

	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
	assert.Equal(t, StateProductReady, w.State())
	assert.Empty(t, w.FailedStage())
	up.AssertExpectations(t)
}

func TestSubmitVariant_OnlyFromProductReady(t *testing.T) {
	w, _, _ := newTestWorkflow(t)

	_, err := w.SubmitVariant(context.Background(), VariantDraft{})

	assert.ErrorIs(t, err, ErrNotReady)
}

func readyWorkflow(t *testing.T) (*Workflow, *mockGateway) {
	t.Helper()
	w, gw, up := newTestWorkflow(t)
	selectCategories(t, w, gw)
	w.SelectImages(imageFiles())
	up.On("UploadBatch", mock.Anything, mock.Anything).Return(testBlob, nil).Once()
	gw.On("CreateProduct", mock.Anything, mock.Anything).
		Return(&gateway.Product{ID: "p1", SKU: "W-1"}, nil).Once()
	_, err := w.SubmitProduct(context.Background(), validDraft())
	require.NoError(t, err)
	return w, gw
}

func validVariantDraft() VariantDraft {
	return VariantDraft{
		VariantType:     "Silver",
		Description:     "Silver case",
		QuantityInStock: 5,
		UnitPrice:       decimal.RequireFromString("19.99"),
	}
}

func TestSubmitVariant_AppendsInArrivalOrder(t *testing.T) {
	w, gw := readyWorkflow(t)

	gw.On("CreateVariant", mock.Anything, mock.MatchedBy(func(p gateway.VariantPayload) bool {
		return p.ProductID == "p1" && p.VariantType == "Silver"
	})).Return(&gateway.Variant{ID: "v1", ProductID: "p1", VariantType: "Silver"}, nil).Once()
	gw.On("CreateVariant", mock.Anything, mock.MatchedBy(func(p gateway.VariantPayload) bool {
		return p.VariantType == "Gold"
	})).Return(&gateway.Variant{ID: "v2", ProductID: "p1", VariantType: "Gold"}, nil).Once()

	first := validVariantDraft()
	_, err := w.SubmitVariant(context.Background(), first)
	require.NoError(t, err)

	second := validVariantDraft()
	second.VariantType = "Gold"
	_, err = w.SubmitVariant(context.Background(), second)
	require.NoError(t, err)

	variants := w.Variants()
	require.Len(t, variants, 2)
	assert.Equal(t, "v1", variants[0].ID)
	assert.Equal(t, "v2", variants[1].ID)
	assert.Equal(t, StateProductReady, w.State())
}

func TestSubmitVariant_PassesThroughCreatingVariant(t *testing.T) {
	w, gw := readyWorkflow(t)

	var observed string
	gw.On("CreateVariant", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { observed = w.State() }).
		Return(&gateway.Variant{ID: "v1", ProductID: "p1"}, nil).Once()

	_, err := w.SubmitVariant(context.Background(), validVariantDraft())

	require.NoError(t, err)
	assert.Equal(t, StateCreatingVariant, observed)
	assert.Equal(t, StateProductReady, w.State())
}

func TestSubmitVariant_FailureDoesNotBlockNext(t *testing.T) {
	w, gw := readyWorkflow(t)

	gw.On("CreateVariant", mock.Anything, mock.Anything).
		Return(nil, errors.New("stock service down")).Once()
	gw.On("CreateVariant", mock.Anything, mock.Anything).
		Return(&gateway.Variant{ID: "v1", ProductID: "p1"}, nil).Once()

	_, err := w.SubmitVariant(context.Background(), validVariantDraft())
	assert.ErrorIs(t, err, ErrVariantCreateFailed)
	assert.Equal(t, StateProductReady, w.State())
	assert.Empty(t, w.Variants())
	require.NotNil(t, w.Product())

	variant, err := w.SubmitVariant(context.Background(), validVariantDraft())
	require.NoError(t, err)
	assert.Equal(t, "v1", variant.ID)
	require.Len(t, w.Variants(), 1)
}

func TestSubmitVariant_ValidationRejectsZeroStockAndPrice(t *testing.T) {
	w, gw := readyWorkflow(t)

	draft := validVariantDraft()
	draft.QuantityInStock = 0
	_, err := w.SubmitVariant(context.Background(), draft)
	require.Error(t, err)

	draft = validVariantDraft()
	draft.UnitPrice = decimal.Zero
	_, err = w.SubmitVariant(context.Background(), draft)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit price")

	assert.Equal(t, StateProductReady, w.State())
	gw.AssertNotCalled(t, "CreateVariant", mock.Anything, mock.Anything)
}

func TestSelectCategory_ClearsSubCategorySelection(t *testing.T) {
	w, gw, _ := newTestWorkflow(t)

	gw.On("GetSubCategories", mock.Anything, "c1").
		Return([]gateway.SubCategory{{ID: "s1", CategoryID: "c1"}}, nil).Once()
	gw.On("GetSubCategories", mock.Anything, "c2").
		Return([]gateway.SubCategory{{ID: "s9", CategoryID: "c2"}}, nil).Once()

	require.NoError(t, w.SelectCategory(context.Background(), "c1"))
	require.NoError(t, w.SelectSubCategory("s1"))

	require.NoError(t, w.SelectCategory(context.Background(), "c2"))

	categoryID, subCategoryID := w.SelectedCategory()
	assert.Equal(t, "c2", categoryID)
	assert.Empty(t, subCategoryID)
}

func TestSelectCategory_FetchFailureKeepsPreviousList(t *testing.T) {
	w, gw, _ := newTestWorkflow(t)

	gw.On("GetSubCategories", mock.Anything, "c1").
		Return([]gateway.SubCategory{{ID: "s1", CategoryID: "c1"}}, nil).Once()
	gw.On("GetSubCategories", mock.Anything, "c2").
		Return(nil, errors.New("timeout")).Once()

	require.NoError(t, w.SelectCategory(context.Background(), "c1"))
	require.NoError(t, w.SelectCategory(context.Background(), "c2"))

	subs := w.SubCategories()
	require.Len(t, subs, 1)
	assert.Equal(t, "s1", subs[0].ID)

	categoryID, _ := w.SelectedCategory()
	assert.Equal(t, "c2", categoryID)
}

func TestLoadCategories(t *testing.T) {
	w, gw, _ := newTestWorkflow(t)

	gw.On("GetCategories", mock.Anything).
		Return([]gateway.Category{{ID: "c1", Name: "Watches"}}, nil).Once()

	categories, err := w.LoadCategories(context.Background())

	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Watches", categories[0].Name)
}

func TestReset_ClearsEverything(t *testing.T) {
	w, gw := readyWorkflow(t)

	gw.On("CreateVariant", mock.Anything, mock.Anything).
		Return(&gateway.Variant{ID: "v1", ProductID: "p1"}, nil).Once()
	_, err := w.SubmitVariant(context.Background(), validVariantDraft())
	require.NoError(t, err)

	w.Reset()

	assert.Equal(t, StateIdle, w.State())
	assert.False(t, w.FieldsLocked())
	assert.Nil(t, w.Product())
	assert.Empty(t, w.Variants())
	assert.Empty(t, w.SubCategories())
	categoryID, subCategoryID := w.SelectedCategory()
	assert.Empty(t, categoryID)
	assert.Empty(t, subCategoryID)
	assert.NoError(t, w.Err())
}
