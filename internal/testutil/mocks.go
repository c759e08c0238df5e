package testutil

import (
	"context"

	"cart-enricher/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockCatalog mocks the catalog client
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FetchUsers(ctx context.Context, limit, skip int, fields []string) ([]models.RawUser, error) {
	args := m.Called(ctx, limit, skip, fields)
	users, _ := args.Get(0).([]models.RawUser)
	return users, args.Error(1)
}

func (m *MockCatalog) FetchCartsForUser(ctx context.Context, userID int) ([]models.Cart, error) {
	args := m.Called(ctx, userID)
	carts, _ := args.Get(0).([]models.Cart)
	return carts, args.Error(1)
}

func (m *MockCatalog) FetchProductCategory(ctx context.Context, productID int) (string, error) {
	args := m.Called(ctx, productID)
	return args.String(0), args.Error(1)
}

// MockGeocoder mocks the reverse geocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) ReverseGeocode(ctx context.Context, c models.Coordinates) (string, bool, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Bool(1), args.Error(2)
}

// MockSink mocks a storage sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSink) Write(ctx context.Context, users []models.EnrichedUser) error {
	args := m.Called(ctx, users)
	return args.Error(0)
}

func (m *MockSink) Close() error {
	args := m.Called()
	return args.Error(0)
}
