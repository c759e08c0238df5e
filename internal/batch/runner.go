// Package batch drives a full enrichment run: it pages through the user
// listing, enriches each page with a bounded worker pool and hands every
// page to the sink.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cart-enricher/internal/common/cache"
	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/utils"
	"cart-enricher/internal/models"
	"cart-enricher/internal/storage"

	"github.com/google/uuid"
)

// UserSource lists users page by page
type UserSource interface {
	FetchUsers(ctx context.Context, limit, skip int, fields []string) ([]models.RawUser, error)
}

// Enricher turns one raw user into its enriched record
type Enricher interface {
	Enrich(ctx context.Context, u models.RawUser) (models.EnrichedUser, error)
}

// Observer is told about skipped users and finished runs
type Observer interface {
	ObserveSkipped()
	ObserveRun(err error, duration time.Duration)
}

// Config controls paging and parallelism
type Config struct {
	PageSize  int
	StartSkip int
	// MaxUsers stops the run once this many users were fetched. Zero means no cap.
	MaxUsers  int
	Workers   int
	Fields    []string
	PageRetry utils.RetryConfig
}

// Summary describes a finished run
type Summary struct {
	RunID    string
	Pages    int
	Fetched  int
	Enriched int
	Skipped  int
	Written  int
	Duration time.Duration
}

type Runner struct {
	users    UserSource
	enricher Enricher
	sink     storage.Sink
	memo     cache.Cache
	observer Observer
	config   Config
	logger   logging.Logger
}

type Option func(*Runner)

// WithMemo clears memo at the start and end of every run
func WithMemo(memo cache.Cache) Option {
	return func(r *Runner) {
		r.memo = memo
	}
}

func WithObserver(obs Observer) Option {
	return func(r *Runner) {
		r.observer = obs
	}
}

func NewRunner(users UserSource, enricher Enricher, sink storage.Sink, config Config, logger logging.Logger, opts ...Option) *Runner {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.PageSize <= 0 {
		config.PageSize = 20
	}
	if config.PageRetry.MaxAttempts <= 0 {
		config.PageRetry = utils.DefaultRetryConfig()
	}
	config.PageRetry.RetryableErrors = func(err error) bool {
		return errors.IsType(err, errors.ErrTypeUpstreamUnavailable)
	}

	r := &Runner{
		users:    users,
		enricher: enricher,
		sink:     sink,
		config:   config,
		logger:   logging.ForComponent(logger, "batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes users from StartSkip until the listing returns an empty page
// or MaxUsers is reached. A user-list failure that survives the page retry
// policy, a sink failure, or cancellation of ctx ends the run with an error;
// the summary still reports what was done before it.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	start := time.Now()
	summary.RunID = uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, summary.RunID)
	logger := r.logger.WithContext(ctx)

	r.clearMemo(ctx)
	defer r.clearMemo(ctx)

	defer func() {
		summary.Duration = time.Since(start)
		if r.observer != nil {
			r.observer.ObserveRun(err, summary.Duration)
		}
	}()

	logger.Info("Run started",
		logging.Int("page_size", r.config.PageSize),
		logging.Int("start_skip", r.config.StartSkip),
		logging.Int("max_users", r.config.MaxUsers),
		logging.Int("workers", r.config.Workers),
	)

	skip := r.config.StartSkip
	for {
		limit := r.config.PageSize
		if r.config.MaxUsers > 0 {
			remaining := r.config.MaxUsers - summary.Fetched
			if remaining <= 0 {
				break
			}
			limit = min(limit, remaining)
		}

		page, err := r.fetchPage(ctx, logger, limit, skip)
		if err != nil {
			logger.Error("User page fetch failed, stopping run", err, logging.Int("skip", skip))
			return summary, fmt.Errorf("fetch users at skip %d: %w", skip, err)
		}
		if len(page) == 0 {
			break
		}

		summary.Pages++
		summary.Fetched += len(page)

		enriched, skipped, err := r.enrichPage(ctx, logger, page)
		summary.Skipped += skipped
		if err != nil {
			return summary, err
		}
		summary.Enriched += len(enriched)

		if err := r.sink.Write(ctx, enriched); err != nil {
			return summary, fmt.Errorf("write page at skip %d to %s: %w", skip, r.sink.Name(), err)
		}
		summary.Written += len(enriched)

		logger.Info("Page processed",
			logging.Int("page", summary.Pages),
			logging.Int("skip", skip),
			logging.Int("fetched", len(page)),
			logging.Int("written", len(enriched)),
			logging.Int("skipped", skipped),
		)

		skip += len(page)
	}

	logger.Info("Run finished",
		logging.Int("pages", summary.Pages),
		logging.Int("fetched", summary.Fetched),
		logging.Int("written", summary.Written),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

func (r *Runner) fetchPage(ctx context.Context, logger logging.Logger, limit, skip int) ([]models.RawUser, error) {
	policy := r.config.PageRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("User page fetch failed, retrying",
			logging.Int("attempt", attempt),
			logging.Int("skip", skip),
			logging.Duration("delay", delay),
			logging.Err(err),
		)
	}

	var page []models.RawUser
	err := utils.RetryWithBackoff(ctx, policy, func() error {
		var err error
		page, err = r.users.FetchUsers(ctx, limit, skip, r.config.Fields)
		return err
	})
	return page, err
}

type result struct {
	user models.EnrichedUser
	err  error
}

// enrichPage fans page out over the worker pool. Results land in the slot of
// their input position, so the returned slice keeps the listing order.
func (r *Runner) enrichPage(ctx context.Context, logger logging.Logger, page []models.RawUser) ([]models.EnrichedUser, int, error) {
	results := make([]result, len(page))
	indexCh := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			u, err := r.enricher.Enrich(ctx, page[idx])
			results[idx] = result{user: u, err: err}
		}
	}

	for i := 0; i < min(r.config.Workers, len(page)); i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := range page {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	enriched := make([]models.EnrichedUser, 0, len(page))
	skipped := 0
	for i, res := range results {
		switch {
		case res.err == nil:
			enriched = append(enriched, res.user)
		case errors.IsType(res.err, errors.ErrTypeMissingIdentifier):
			skipped++
			logger.Warn("Skipping user without identifier",
				logging.Int("position", i),
				logging.String("first_name", page[i].FirstName),
				logging.String("last_name", page[i].LastName),
			)
			if r.observer != nil {
				r.observer.ObserveSkipped()
			}
		default:
			return nil, skipped, fmt.Errorf("enrich user %d: %w", page[i].ID, res.err)
		}
	}
	return enriched, skipped, nil
}

func (r *Runner) clearMemo(ctx context.Context) {
	if r.memo == nil {
		return
	}
	if err := r.memo.Clear(ctx); err != nil {
		r.logger.Warn("Failed to clear run cache", logging.Err(err))
	}
}
