package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cart-enricher/internal/common/cache"
	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/utils"
	"cart-enricher/internal/models"
	"cart-enricher/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type enricherFunc func(ctx context.Context, u models.RawUser) (models.EnrichedUser, error)

func (f enricherFunc) Enrich(ctx context.Context, u models.RawUser) (models.EnrichedUser, error) {
	return f(ctx, u)
}

func passthrough(_ context.Context, u models.RawUser) (models.EnrichedUser, error) {
	if u.ID <= 0 {
		return models.EnrichedUser{}, errors.MissingIdentifier("no id")
	}
	return models.NewEnrichedUser(u, "", ""), nil
}

type memorySink struct {
	mu      sync.Mutex
	batches [][]models.EnrichedUser
	err     error
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(_ context.Context, users []models.EnrichedUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, users)
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) ids() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	for _, b := range s.batches {
		for _, u := range b {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

type recordingObserver struct {
	skipped atomic.Int32
	runErr  error
	runs    int
}

func (o *recordingObserver) ObserveSkipped() { o.skipped.Add(1) }

func (o *recordingObserver) ObserveRun(err error, _ time.Duration) {
	o.runs++
	o.runErr = err
}

func users(ids ...int) []models.RawUser {
	out := make([]models.RawUser, len(ids))
	for i, id := range ids {
		out[i] = testutil.UserWithoutCoordinates(id)
	}
	return out
}

func noSleepRetry() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
		Sleep:         func(context.Context, time.Duration) error { return nil },
	}
}

func TestRun_PagesUntilEmptyPage(t *testing.T) {
	source := &testutil.MockCatalog{}
	fields := []string{"firstName", "lastName"}
	source.On("FetchUsers", mock.Anything, 2, 0, fields).Return(users(1, 2), nil).Once()
	source.On("FetchUsers", mock.Anything, 2, 2, fields).Return(users(3, 4), nil).Once()
	source.On("FetchUsers", mock.Anything, 2, 4, fields).Return(users(5), nil).Once()
	source.On("FetchUsers", mock.Anything, 2, 5, fields).Return([]models.RawUser{}, nil).Once()

	sink := &memorySink{}
	runner := NewRunner(source, enricherFunc(passthrough), sink, Config{
		PageSize:  2,
		Workers:   2,
		Fields:    fields,
		PageRetry: noSleepRetry(),
	}, logging.NewNopLogger())

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 5, summary.Fetched)
	assert.Equal(t, 5, summary.Enriched)
	assert.Equal(t, 5, summary.Written)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, sink.ids())
	source.AssertExpectations(t)
}

func TestRun_StartSkipAndMaxUsers(t *testing.T) {
	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 2, 10, mock.Anything).Return(users(11, 12), nil).Once()
	source.On("FetchUsers", mock.Anything, 1, 12, mock.Anything).Return(users(13), nil).Once()

	sink := &memorySink{}
	runner := NewRunner(source, enricherFunc(passthrough), sink, Config{
		PageSize:  2,
		StartSkip: 10,
		MaxUsers:  3,
		Workers:   1,
		PageRetry: noSleepRetry(),
	}, logging.NewNopLogger())

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, []int{11, 12, 13}, sink.ids())
	source.AssertExpectations(t)
	source.AssertNumberOfCalls(t, "FetchUsers", 2)
}

func TestRun_SkipsUsersWithoutIdentifier(t *testing.T) {
	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 5, 0, mock.Anything).Return(users(1, 0, 3), nil).Once()
	source.On("FetchUsers", mock.Anything, 5, 3, mock.Anything).Return([]models.RawUser{}, nil).Once()

	sink := &memorySink{}
	obs := &recordingObserver{}
	runner := NewRunner(source, enricherFunc(passthrough), sink, Config{PageSize: 5, Workers: 3, PageRetry: noSleepRetry()},
		logging.NewNopLogger(), WithObserver(obs))

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, []int{1, 3}, sink.ids())
	assert.Equal(t, int32(1), obs.skipped.Load())
	assert.Equal(t, 1, obs.runs)
	assert.NoError(t, obs.runErr)
}

func TestRun_KeepsInputOrderWithConcurrentWorkers(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8}
	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 8, 0, mock.Anything).Return(users(ids...), nil).Once()
	source.On("FetchUsers", mock.Anything, 8, 8, mock.Anything).Return([]models.RawUser{}, nil).Once()

	var inFlight, maxSeen atomic.Int32
	slowFirst := func(ctx context.Context, u models.RawUser) (models.EnrichedUser, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxSeen.Load()
			if n <= seen || maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		time.Sleep(time.Duration(10-u.ID) * time.Millisecond)
		return passthrough(ctx, u)
	}

	sink := &memorySink{}
	runner := NewRunner(source, enricherFunc(slowFirst), sink, Config{PageSize: 8, Workers: 3, PageRetry: noSleepRetry()}, logging.NewNopLogger())

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ids, sink.ids())
	assert.LessOrEqual(t, maxSeen.Load(), int32(3))
}

func TestRun_RetriesUnavailablePage(t *testing.T) {
	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 2, 0, mock.Anything).
		Return(nil, errors.UpstreamUnavailable("users request failed", testutil.ErrUpstreamDown)).Once()
	source.On("FetchUsers", mock.Anything, 2, 0, mock.Anything).Return(users(1), nil).Once()
	source.On("FetchUsers", mock.Anything, 2, 1, mock.Anything).Return([]models.RawUser{}, nil).Once()

	runner := NewRunner(source, enricherFunc(passthrough), &memorySink{}, Config{PageSize: 2, PageRetry: noSleepRetry()}, logging.NewNopLogger())

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	source.AssertNumberOfCalls(t, "FetchUsers", 3)
}

func TestRun_RejectedPageStopsRun(t *testing.T) {
	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 2, 0, mock.Anything).Return(nil, errors.UpstreamRejected(400, "bad request")).Once()

	obs := &recordingObserver{}
	runner := NewRunner(source, enricherFunc(passthrough), &memorySink{}, Config{PageSize: 2, PageRetry: noSleepRetry()},
		logging.NewNopLogger(), WithObserver(obs))

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamRejected))
	source.AssertNumberOfCalls(t, "FetchUsers", 1)
	assert.Error(t, obs.runErr)
}

func TestRun_SinkFailureStopsRun(t *testing.T) {
	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 2, 0, mock.Anything).Return(users(1, 2), nil).Once()

	runner := NewRunner(source, enricherFunc(passthrough), &memorySink{err: testutil.ErrSinkDown}, Config{PageSize: 2, PageRetry: noSleepRetry()}, logging.NewNopLogger())

	summary, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, testutil.ErrSinkDown)
	assert.Equal(t, 2, summary.Enriched)
	assert.Equal(t, 0, summary.Written)
}

func TestRun_CarriesRunIDAndClearsMemo(t *testing.T) {
	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 2, 0, mock.Anything).Return(users(1), nil).Once()
	source.On("FetchUsers", mock.Anything, 2, 1, mock.Anything).Return([]models.RawUser{}, nil).Once()

	memo := cache.NewLocalCache(0, time.Minute)
	require.NoError(t, memo.Set(context.Background(), "product:1", "stale", 0))

	var seenRunID string
	var memoLenDuringRun int
	enricher := func(ctx context.Context, u models.RawUser) (models.EnrichedUser, error) {
		seenRunID, _ = logging.RunIDFromContext(ctx)
		memoLenDuringRun = memo.Len()
		_ = memo.Set(ctx, "product:2", "mobile", 0)
		return passthrough(ctx, u)
	}

	runner := NewRunner(source, enricherFunc(enricher), &memorySink{}, Config{PageSize: 2, PageRetry: noSleepRetry()},
		logging.NewNopLogger(), WithMemo(memo))

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, seenRunID)
	assert.Equal(t, 0, memoLenDuringRun)
	assert.Equal(t, 0, memo.Len())
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	source := &testutil.MockCatalog{}
	source.On("FetchUsers", mock.Anything, 4, 0, mock.Anything).Return(users(1, 2, 3, 4), nil).Once()

	enricher := func(ctx context.Context, u models.RawUser) (models.EnrichedUser, error) {
		cancel()
		return models.EnrichedUser{}, ctx.Err()
	}

	sink := &memorySink{}
	runner := NewRunner(source, enricherFunc(enricher), sink, Config{PageSize: 4, Workers: 1, PageRetry: noSleepRetry()}, logging.NewNopLogger())

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.ids())
}
