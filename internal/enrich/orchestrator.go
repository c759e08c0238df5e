package enrich

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"

	"golang.org/x/sync/errgroup"
)

// State is a step of one user's enrichment
type State int

const (
	StateFetchingCarts State = iota
	StateFlattening
	StateAggregating
	StateGeocoding
	StateMerged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetchingCarts:
		return "fetching_carts"
	case StateFlattening:
		return "flattening"
	case StateAggregating:
		return "aggregating"
	case StateGeocoding:
		return "geocoding"
	case StateMerged:
		return "merged"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CartSource fetches the carts of a user
type CartSource interface {
	FetchCartsForUser(ctx context.Context, userID int) ([]models.Cart, error)
}

// CountryResolver reverse geocodes coordinates
type CountryResolver interface {
	ReverseGeocode(ctx context.Context, c models.Coordinates) (string, bool, error)
}

// Observer is told about every merged user
type Observer interface {
	ObserveEnrichment(user models.EnrichedUser, duration time.Duration)
}

// StateHook receives state transitions. The cart and geocode paths run
// concurrently, so hooks must be safe for concurrent use.
type StateHook func(userID int, state State)

// Orchestrator enriches one user at a time and is safe to share between workers
type Orchestrator struct {
	carts       CartSource
	flattener   *Flattener
	geocoder    CountryResolver
	userTimeout time.Duration
	observer    Observer
	hook        StateHook
	logger      logging.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithUserTimeout bounds each Enrich call. When it elapses the unfinished
// lookups degrade to Unknown instead of failing the user.
func WithUserTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.userTimeout = d
	}
}

// WithObserver reports merged users to obs
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithStateHook reports state transitions to hook
func WithStateHook(hook StateHook) Option {
	return func(o *Orchestrator) {
		o.hook = hook
	}
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(carts CartSource, flattener *Flattener, geocoder CountryResolver, logger logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		carts:     carts,
		flattener: flattener,
		geocoder:  geocoder,
		logger:    logging.ForComponent(logger, "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enrich builds the enriched record for u.
//
// The cart path (fetch, flatten, aggregate) and the geocode path run
// concurrently and both finish before the merge. Failures on either path
// become Unknown in the output. The only errors returned are
// MissingIdentifier, for a user without an id, and the caller's own
// context error.
func (o *Orchestrator) Enrich(ctx context.Context, u models.RawUser) (models.EnrichedUser, error) {
	if u.ID <= 0 {
		o.transition(u.ID, StateFailed)
		return models.EnrichedUser{}, errors.MissingIdentifier(
			fmt.Sprintf("user %s %s has no identifier", u.FirstName, u.LastName))
	}

	start := time.Now()
	parent := logging.ContextWithUserID(ctx, u.ID)
	ctx = parent
	if o.userTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, o.userTimeout)
		defer cancel()
	}

	logger := o.logger.WithContext(ctx)

	var (
		favorite string
		country  string
		g        errgroup.Group
	)

	g.Go(func() error {
		favorite = o.favoriteCategory(ctx, logger, u.ID)
		return nil
	})

	g.Go(func() error {
		country = o.country(ctx, logger, u)
		return nil
	})

	_ = g.Wait()

	if err := parent.Err(); err != nil {
		o.transition(u.ID, StateFailed)
		return models.EnrichedUser{}, err
	}

	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("User enrichment hit its deadline, unfinished lookups set to Unknown",
			logging.Duration("timeout", o.userTimeout),
		)
	}

	enriched := models.NewEnrichedUser(u, country, favorite)
	o.transition(u.ID, StateMerged)

	duration := time.Since(start)
	if o.observer != nil {
		o.observer.ObserveEnrichment(enriched, duration)
	}

	logger.Debug("User enriched",
		logging.String("country", enriched.Country),
		logging.String("favorite_category", enriched.FavoriteCategory),
		logging.Duration("duration", duration),
	)

	return enriched, nil
}

func (o *Orchestrator) favoriteCategory(ctx context.Context, logger logging.Logger, userID int) string {
	o.transition(userID, StateFetchingCarts)
	carts, err := o.carts.FetchCartsForUser(ctx, userID)
	if err != nil {
		// A rejected cart request (e.g. 404) just means no carts
		if errors.IsType(err, errors.ErrTypeUpstreamRejected) {
			logger.Debug("Carts unavailable for user", logging.Int("status", errors.StatusCode(err)))
		} else {
			logger.Warn("Cart fetch failed, continuing without carts", logging.Err(err))
		}
		carts = nil
	}

	o.transition(userID, StateFlattening)
	lines := o.flattener.Flatten(ctx, carts)

	o.transition(userID, StateAggregating)
	favorite, _ := PickFavorite(Aggregate(lines))
	return favorite
}

func (o *Orchestrator) country(ctx context.Context, logger logging.Logger, u models.RawUser) string {
	if !u.HasCoordinates() {
		return ""
	}

	o.transition(u.ID, StateGeocoding)
	country, found, err := o.geocoder.ReverseGeocode(ctx, *u.Address.Coordinates)
	if err != nil {
		logger.Warn("Geocoding failed, country set to Unknown",
			logging.String("error_type", string(errors.GetType(err))),
			logging.Err(err),
		)
		return ""
	}
	if !found {
		return ""
	}
	return country
}

func (o *Orchestrator) transition(userID int, state State) {
	if o.hook != nil {
		o.hook(userID, state)
	}
}
