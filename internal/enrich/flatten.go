// Package enrich turns a raw user into an enriched record: carts are
// flattened into categorized lines, summed per category, and merged with
// the reverse geocoded country.
package enrich

import (
	"context"
	"fmt"

	"cart-enricher/internal/common/cache"
	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"

	"golang.org/x/sync/errgroup"
)

// CategoryResolver looks up the category of a product
type CategoryResolver interface {
	FetchProductCategory(ctx context.Context, productID int) (string, error)
}

// Flattener resolves the category of every cart line
type Flattener struct {
	resolver    CategoryResolver
	concurrency int
	memo        *cache.LocalCache
	logger      logging.Logger
}

// NewFlattener creates a flattener issuing at most concurrency lookups at once
func NewFlattener(resolver CategoryResolver, concurrency int, logger logging.Logger) *Flattener {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Flattener{
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logging.ForComponent(logger, "flattener"),
	}
}

// WithMemo shares category lookups through memo. The owner decides its lifetime.
func (f *Flattener) WithMemo(memo *cache.LocalCache) *Flattener {
	f.memo = memo
	return f
}

// Flatten returns one categorized line per input line, in input order.
// Duplicate products across carts stay separate lines. A failed lookup
// leaves only that line unresolved.
func (f *Flattener) Flatten(ctx context.Context, carts []models.Cart) []models.CategorizedLine {
	var lines []models.CartLine
	for _, cart := range carts {
		lines = append(lines, cart.Lines...)
	}

	out := make([]models.CategorizedLine, len(lines))
	if len(lines) == 0 {
		return out
	}

	logger := f.logger.WithContext(ctx)

	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			category, err := f.resolve(ctx, line.ProductID)
			if err != nil {
				logger.Debug("Product category unresolved",
					logging.Int("product_id", line.ProductID),
					logging.String("error_type", string(errors.GetType(err))),
					logging.Err(err),
				)
				out[i] = models.Unresolved(line)
				return nil
			}
			out[i] = models.Resolve(line, category)
			return nil
		})
	}

	_ = g.Wait()
	return out
}

func (f *Flattener) resolve(ctx context.Context, productID int) (string, error) {
	if f.memo == nil {
		return f.resolver.FetchProductCategory(ctx, productID)
	}

	v, err := f.memo.GetOrLoad(ctx, fmt.Sprintf("product:%d", productID), func(ctx context.Context) (interface{}, error) {
		return f.resolver.FetchProductCategory(ctx, productID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
