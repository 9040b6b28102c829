package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/merchware/storefront/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is a typed client for the commerce platform API. Each operation
// maps to one request/response pair; non-success status codes are translated
// into errors, so a nil error always means the operation's success code.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
	token   string
}

// NewClient creates a gateway client against the given base URL.
func NewClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// WithToken returns a copy of the client that sends the given bearer token
// on every request.
func (c *Client) WithToken(token string) *Client {
	cpy := *c
	cpy.token = token
	return &cpy
}

// SignIn authenticates a user and returns the session.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	var body struct {
		Session Session `json:"session"`
	}
	if err := c.postJSON(ctx, "/user/signin", creds, http.StatusOK, &body); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &body.Session, nil
}

// SignUp registers a new user and returns the session.
func (c *Client) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	var body struct {
		Session Session `json:"session"`
	}
	if err := c.postJSON(ctx, "/user/signup", creds, http.StatusCreated, &body); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return &body.Session, nil
}

// GetCategories retrieves all top-level categories. Success code 200.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.getJSON(ctx, "/category", &categories); err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return categories, nil
}

// GetSubCategories retrieves the sub-categories scoped to the given
// category id. Success code 200.
func (c *Client) GetSubCategories(ctx context.Context, categoryID string) ([]SubCategory, error) {
	var body struct {
		SubCategories []SubCategory `json:"subCategories"`
	}
	path := "/category/" + url.PathEscape(categoryID) + "/subcategories"
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, fmt.Errorf("get sub-categories: %w", err)
	}
	return body.SubCategories, nil
}

// GetProduct retrieves a product by id. Success code 200.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var body struct {
		Product Product `json:"product"`
	}
	if err := c.getJSON(ctx, "/product/"+url.PathEscape(productID), &body); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &body.Product, nil
}

// GetVariantsForProduct retrieves all variants of a product. Success code 200.
func (c *Client) GetVariantsForProduct(ctx context.Context, productID string) ([]Variant, error) {
	var body struct {
		Variants []Variant `json:"variants"`
	}
	path := "/variant/product/" + url.PathEscape(productID)
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, fmt.Errorf("get variants: %w", err)
	}
	return body.Variants, nil
}

// CreateProduct creates a product from the given payload. Success code 201.
func (c *Client) CreateProduct(ctx context.Context, payload ProductPayload) (*Product, error) {
	var body struct {
		Product Product `json:"product"`
	}
	if err := c.postJSON(ctx, "/product", payload, http.StatusCreated, &body); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	c.logger.InfoContext(ctx, "product created",
		slog.String("product_id", body.Product.ID),
		slog.String("sku", body.Product.SKU),
	)

	return &body.Product, nil
}

// CreateVariant creates a variant scoped to the payload's product id.
// Success code 201.
func (c *Client) CreateVariant(ctx context.Context, payload VariantPayload) (*Variant, error) {
	var body struct {
		Variant Variant `json:"variant"`
	}
	if err := c.postJSON(ctx, "/variant", payload, http.StatusCreated, &body); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	c.logger.InfoContext(ctx, "variant created",
		slog.String("variant_id", body.Variant.ID),
		slog.String("product_id", body.Variant.ProductID),
	)

	return &body.Variant, nil
}

// UploadFile submits one file tagged with the given batch id. Failure is
// signaled by error only; there is no meaningful status code distinction.
func (c *Client) UploadFile(ctx context.Context, file File, batchID string) (*BlobDescriptor, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("batch_id", batchID); err != nil {
		return nil, fmt.Errorf("write batch id field: %w", err)
	}
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Data); err != nil {
		return nil, fmt.Errorf("copy file data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "upload file")
	}

	var blob BlobDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	return &blob, nil
}

// getJSON performs a GET expecting status 200 and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, http.MethodGet+" "+path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postJSON performs a POST with a JSON body, expecting the given success
// status, and decodes the response body into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, payload any, wantStatus int, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return httpclient.ParseResponseError(resp, http.MethodPost+" "+path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// authorize attaches the bearer token when one is configured.
func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
