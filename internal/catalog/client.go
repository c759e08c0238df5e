// Package catalog reads users, carts and product categories from the
// remote catalog service.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/validation"
	"cart-enricher/internal/models"
)

// JSONGetter issues a GET and decodes the JSON body into out. Implementations
// classify failures as UpstreamUnavailable or UpstreamRejected.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, query url.Values, out interface{}) error
}

// Config holds the catalog endpoints
type Config struct {
	UsersURL    string
	CartsURL    string
	ProductsURL string
}

// Client is the typed boundary in front of the catalog service.
//
// Every response is decoded into models types here; nothing past this
// client sees raw JSON. Each resource has its own JSONGetter so rate limits,
// breakers and metrics are kept per upstream. Errors are returned, never
// swallowed:
//   - ValidationError for bad arguments, before any request is made
//   - UpstreamUnavailable when the service could not be reached
//   - UpstreamRejected when it answered with a non-success status
//
// Client is safe for concurrent use when its getters are.
type Client struct {
	config   Config
	users    JSONGetter
	carts    JSONGetter
	products JSONGetter
	logger   logging.Logger
}

// NewClient creates a catalog client
func NewClient(config Config, users, carts, products JSONGetter, logger logging.Logger) *Client {
	return &Client{
		config:   config,
		users:    users,
		carts:    carts,
		products: products,
		logger:   logging.ForComponent(logger, "catalog"),
	}
}

type usersResponse struct {
	Users []models.RawUser `json:"users"`
	Total int              `json:"total"`
}

type cartsResponse struct {
	Carts []models.Cart `json:"carts"`
}

type productResponse struct {
	ID       int    `json:"id"`
	Category string `json:"category"`
}

// FetchUsers returns one page of users. fields restricts the returned
// attributes; missing attributes decode as zero values. A short or empty
// page means the listing is exhausted.
func (c *Client) FetchUsers(ctx context.Context, limit, skip int, fields []string) ([]models.RawUser, error) {
	if err := validation.New("pagination").
		NonNegative(limit, "limit").
		NonNegative(skip, "skip").
		Err(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))
	if selected := selectFields(fields); selected != "" {
		query.Set("select", selected)
	}

	var resp usersResponse
	if err := c.users.GetJSON(ctx, c.config.UsersURL, query, &resp); err != nil {
		return nil, fmt.Errorf("fetch users (limit=%d skip=%d): %w", limit, skip, err)
	}

	c.logger.WithContext(ctx).Debug("Fetched users page",
		logging.Int("limit", limit),
		logging.Int("skip", skip),
		logging.Int("count", len(resp.Users)),
	)

	if resp.Users == nil {
		return []models.RawUser{}, nil
	}
	return resp.Users, nil
}

// FetchCartsForUser returns every cart of userID, fresh on each call
func (c *Client) FetchCartsForUser(ctx context.Context, userID int) ([]models.Cart, error) {
	if userID <= 0 {
		return nil, errors.ValidationError(fmt.Sprintf("user id must be positive, got %d", userID))
	}

	endpoint, err := url.JoinPath(c.config.CartsURL, "user", strconv.Itoa(userID))
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid carts url %q: %v", c.config.CartsURL, err))
	}

	var resp cartsResponse
	if err := c.carts.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch carts for user %d: %w", userID, err)
	}

	return resp.Carts, nil
}

// FetchProductCategory returns the category label of productID. A product
// without a category is reported as UpstreamRejected so it can never be
// mistaken for a real label.
func (c *Client) FetchProductCategory(ctx context.Context, productID int) (string, error) {
	endpoint, err := url.JoinPath(c.config.ProductsURL, strconv.Itoa(productID))
	if err != nil {
		return "", errors.ConfigError(fmt.Sprintf("invalid products url %q: %v", c.config.ProductsURL, err))
	}

	query := url.Values{}
	query.Set("select", "category")

	var resp productResponse
	if err := c.products.GetJSON(ctx, endpoint, query, &resp); err != nil {
		return "", fmt.Errorf("fetch category of product %d: %w", productID, err)
	}

	category := strings.TrimSpace(resp.Category)
	if category == "" {
		return "", errors.UpstreamRejected(200, fmt.Sprintf("product %d has no category", productID))
	}
	return category, nil
}

func selectFields(fields []string) string {
	cleaned := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			cleaned = append(cleaned, f)
		}
	}
	return strings.Join(cleaned, ",")
}
