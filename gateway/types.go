package gateway

import (
	"io"

	"github.com/shopspring/decimal"
)

// Category is a top-level product category.
type Category struct {
	ID   string `json:"category_id"`
	Name string `json:"category_name"`
}

// SubCategory is a category scoped to a parent category.
type SubCategory struct {
	ID         string `json:"sub_category_id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// ProductImage is one image attached to a product.
type ProductImage struct {
	Image string `json:"image"`
}

// Product is an immutable product record with a server-assigned id.
// The id is the required foreign key for every variant created against it.
type Product struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	SKU           string         `json:"sku"`
	Weight        float64        `json:"weight"`
	CategoryID    string         `json:"category_id"`
	SubCategoryID string         `json:"sub_category_id"`
	Images        []ProductImage `json:"images,omitempty"`
}

// Variant is one purchasable variation of a product.
type Variant struct {
	ID              string          `json:"variant_id"`
	ProductID       string          `json:"product_id"`
	VariantType     string          `json:"variant_type"`
	Description     string          `json:"description"`
	QuantityInStock int             `json:"quantity_in_stock"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// File is one file handle selected for upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        io.Reader
}

// BlobDescriptor describes one uploaded file within a batch.
type BlobDescriptor struct {
	BatchID string `json:"batch_id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// ProductPayload is the request body for creating a product. Images carries
// the resolved result of the image batch upload.
type ProductPayload struct {
	Title         string          `json:"title"`
	SKU           string          `json:"sku"`
	Weight        float64         `json:"weight"`
	CategoryID    string          `json:"category_id"`
	SubCategoryID string          `json:"sub_category_id"`
	Images        *BlobDescriptor `json:"images"`
}

// VariantPayload is the request body for creating a variant.
type VariantPayload struct {
	ProductID       string          `json:"product_id"`
	VariantType     string          `json:"variant_type"`
	Description     string          `json:"description"`
	QuantityInStock int             `json:"quantity_in_stock"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// Credentials is the request body for the sign-in and sign-up operations.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Session is an authenticated user session returned by sign-in/up.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}
