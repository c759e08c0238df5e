package catalog

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"cart-enricher/internal/common/errors"
	commonhttp "cart-enricher/internal/common/http"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
	"cart-enricher/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(f *testutil.FakeUpstream) *Client {
	logger := logging.NewNopLogger()
	httpClient := f.Server.Client()

	return NewClient(Config{
		UsersURL:    f.UsersURL(),
		CartsURL:    f.CartsURL(),
		ProductsURL: f.ProductsURL(),
	},
		commonhttp.NewHTTPClientWrapper("users", httpClient, logger),
		commonhttp.NewHTTPClientWrapper("carts", httpClient, logger),
		commonhttp.NewHTTPClientWrapper("products", httpClient, logger),
		logger,
	)
}

func seedUsers(f *testutil.FakeUpstream, n int) {
	for i := 1; i <= n; i++ {
		f.WithUsers(testutil.UserWithCoordinates(i, testutil.Berlin))
	}
}

func TestFetchUsers_PaginationParameters(t *testing.T) {
	tests := []struct {
		limit, skip int
		wantCount   int
	}{
		{limit: 5, skip: 0, wantCount: 5},
		{limit: 5, skip: 10, wantCount: 2},
		{limit: 3, skip: 12, wantCount: 0},
		{limit: 0, skip: 0, wantCount: 12},
		{limit: 100, skip: 7, wantCount: 5},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.limit)+"/"+strconv.Itoa(tt.skip), func(t *testing.T) {
			f := testutil.NewFakeUpstream(t)
			seedUsers(f, 12)
			client := newTestClient(f)

			users, err := client.FetchUsers(context.Background(), tt.limit, tt.skip, nil)
			require.NoError(t, err)
			assert.Len(t, users, tt.wantCount)

			queries := f.Queries("users")
			require.Len(t, queries, 1)
			assert.Equal(t, strconv.Itoa(tt.limit), queries[0].Get("limit"))
			assert.Equal(t, strconv.Itoa(tt.skip), queries[0].Get("skip"))
			assert.Empty(t, queries[0].Get("select"))
		})
	}
}

func TestFetchUsers_NegativePaginationFailsBeforeRequest(t *testing.T) {
	tests := []struct {
		name        string
		limit, skip int
	}{
		{"negative limit", -1, 0},
		{"negative skip", 10, -5},
		{"both negative", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewFakeUpstream(t)
			client := newTestClient(f)

			users, err := client.FetchUsers(context.Background(), tt.limit, tt.skip, nil)
			require.Error(t, err)
			assert.Nil(t, users)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
			assert.Zero(t, f.Hits("users"))
		})
	}
}

func TestFetchUsers_FieldSelection(t *testing.T) {
	f := testutil.NewFakeUpstream(t)
	seedUsers(f, 2)
	client := newTestClient(f)

	users, err := client.FetchUsers(context.Background(), 2, 0, []string{"firstName", " age ", ""})
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "firstName,age", f.Queries("users")[0].Get("select"))

	// Unselected fields are tolerated as missing
	assert.Equal(t, 1, users[0].ID)
	assert.Equal(t, "A", users[0].FirstName)
	assert.Equal(t, 30, users[0].Age)
	assert.Empty(t, users[0].LastName)
	assert.False(t, users[0].HasCoordinates())
}

func TestFetchUsers_UpstreamFailure(t *testing.T) {
	f := testutil.NewFakeUpstream(t)
	f.Fail("users", http.StatusInternalServerError)
	client := newTestClient(f)

	_, err := client.FetchUsers(context.Background(), 10, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamRejected))
	assert.Equal(t, 500, errors.StatusCode(err))
}

func TestFetchCartsForUser(t *testing.T) {
	f := testutil.NewFakeUpstream(t)
	f.WithCarts(7,
		testutil.CartOf(1, testutil.Line(101, 2)),
		testutil.CartOf(2, testutil.Line(101, 1), testutil.Line(201, 4)),
	)
	client := newTestClient(f)

	carts, err := client.FetchCartsForUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, carts, 2)
	assert.Equal(t, 7, carts[0].UserID)
	assert.Equal(t, []models.CartLine{{ProductID: 101, Quantity: 1}, {ProductID: 201, Quantity: 4}}, carts[1].Lines)

	empty, err := client.FetchCartsForUser(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFetchCartsForUser_ErrorTaxonomy(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		f := testutil.NewFakeUpstream(t)
		f.Fail("carts:7", http.StatusNotFound)
		client := newTestClient(f)

		_, err := client.FetchCartsForUser(context.Background(), 7)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamRejected))
		assert.Equal(t, http.StatusNotFound, errors.StatusCode(err))
	})

	t.Run("unavailable", func(t *testing.T) {
		f := testutil.NewFakeUpstream(t)
		client := newTestClient(f)
		f.Server.Close()

		_, err := client.FetchCartsForUser(context.Background(), 7)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamUnavailable))
	})

	t.Run("invalid id", func(t *testing.T) {
		f := testutil.NewFakeUpstream(t)
		client := newTestClient(f)

		_, err := client.FetchCartsForUser(context.Background(), 0)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
		assert.Zero(t, f.Hits("carts"))
	})
}

func TestFetchProductCategory(t *testing.T) {
	f := testutil.NewFakeUpstream(t)
	f.WithCategory(101, "smartphones").WithCategory(102, "  ")
	client := newTestClient(f)

	category, err := client.FetchProductCategory(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, "smartphones", category)
	assert.Equal(t, "category", f.Queries("products")[0].Get("select"))

	_, err = client.FetchProductCategory(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamRejected))
	assert.Equal(t, http.StatusNotFound, errors.StatusCode(err))

	_, err = client.FetchProductCategory(context.Background(), 102)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamRejected))
}
