package testutil

import (
	"errors"

	"cart-enricher/internal/models"
)

// Canned failures for mocks to return.
var (
	ErrTestFailure  = errors.New("test failure")
	ErrSinkDown     = errors.New("sink unavailable")
	ErrUpstreamDown = errors.New("upstream down")
)

// Berlin is the coordinate pair used by fixtures that resolve to Germany
var Berlin = models.Coordinates{Lat: 52.5, Lng: 13.4}

// UserWithCoordinates returns a fully populated raw user located at c
func UserWithCoordinates(id int, c models.Coordinates) models.RawUser {
	return models.RawUser{
		ID:        id,
		FirstName: "A",
		LastName:  "B",
		Age:       30,
		Gender:    "male",
		Address:   models.Address{Coordinates: &c},
	}
}

// UserWithoutCoordinates returns a raw user that cannot be geocoded
func UserWithoutCoordinates(id int) models.RawUser {
	return models.RawUser{
		ID:        id,
		FirstName: "C",
		LastName:  "D",
		Age:       41,
		Gender:    "female",
	}
}

// Line builds a cart line
func Line(productID, quantity int) models.CartLine {
	return models.CartLine{ProductID: productID, Quantity: quantity}
}

// CartOf builds a cart holding lines
func CartOf(id int, lines ...models.CartLine) models.Cart {
	return models.Cart{ID: id, Lines: lines}
}

// SeedReferenceUser configures f with user 7: two "mobile" lines of
// quantity 2 and one "beauty" line of quantity 1, located in Germany.
func SeedReferenceUser(f *FakeUpstream) models.RawUser {
	user := UserWithCoordinates(7, Berlin)
	f.WithUsers(user).
		WithCarts(7, CartOf(1, Line(101, 2), Line(102, 2), Line(201, 1))).
		WithCategory(101, "mobile").
		WithCategory(102, "mobile").
		WithCategory(201, "beauty").
		WithCountry(Berlin, "Germany")
	return user
}
