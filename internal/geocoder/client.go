// Package geocoder resolves coordinates to a country name using a
// Nominatim-compatible reverse geocoding endpoint.
package geocoder

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/utils"
	"cart-enricher/internal/models"
)

// JSONGetter issues a GET and decodes the JSON body into out
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, query url.Values, out interface{}) error
}

// Config holds the geocoder endpoint and retry policy. Only timeout-class
// failures are ever retried; Retry.RetryableErrors is overridden. A
// Retry.OnRetry hook still runs, after the client logs the retry.
type Config struct {
	URL      string
	Language string
	Retry    utils.RetryConfig
}

// Client performs reverse geocoding lookups
type Client struct {
	config Config
	getter JSONGetter
	logger logging.Logger
}

// NewClient creates a geocoder client
func NewClient(config Config, getter JSONGetter, logger logging.Logger) *Client {
	if config.Language == "" {
		config.Language = "en"
	}
	config.Retry.RetryableErrors = errors.IsTimeout

	return &Client{
		config: config,
		getter: getter,
		logger: logging.ForComponent(logger, "geocoder"),
	}
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// ReverseGeocode returns the country at c.
//
// found is false, with a nil error, when the service has no match, rejects
// the request, or keeps timing out until the attempts run out. Out-of-range
// coordinates are a ValidationError and never reach the network. Any other
// failure is returned immediately without retrying.
func (c *Client) ReverseGeocode(ctx context.Context, coords models.Coordinates) (string, bool, error) {
	if err := coords.Validate(); err != nil {
		return "", false, errors.ValidationError(fmt.Sprintf("invalid coordinates: %v", err))
	}

	logger := c.logger.WithContext(ctx)

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Lng, 'f', -1, 64))
	query.Set("format", "json")
	query.Set("zoom", "3")
	query.Set("accept-language", c.config.Language)

	policy := c.config.Retry
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("Geocode attempt timed out, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.String("coordinates", coords.String()),
		)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	var resp reverseResponse
	err := utils.RetryWithBackoff(ctx, policy, func() error {
		resp = reverseResponse{}
		return c.getter.GetJSON(ctx, c.config.URL, query, &resp)
	})

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return "", false, err
	case errors.IsTimeout(err):
		logger.Warn("Geocoding gave up after repeated timeouts",
			logging.String("coordinates", coords.String()),
			logging.Err(err),
		)
		return "", false, nil
	case errors.IsType(err, errors.ErrTypeUpstreamRejected):
		logger.Debug("Geocoder rejected request",
			logging.String("coordinates", coords.String()),
			logging.Int("status", errors.StatusCode(err)),
		)
		return "", false, nil
	default:
		return "", false, err
	}

	country := strings.TrimSpace(resp.Address.Country)
	if resp.Error != "" || country == "" {
		logger.Debug("No country at coordinates",
			logging.String("coordinates", coords.String()),
			logging.String("reason", resp.Error),
		)
		return "", false, nil
	}

	return country, true, nil
}
