package models

import (
	"strconv"

	"github.com/samber/lo"
)

// Unknown is stored when a country or favorite category could not be derived
const Unknown = "Unknown"

// Columns is the fixed column order of a flat enriched record
var Columns = []string{"firstName", "lastName", "age", "gender", "country", "favoriteCategory"}

// EnrichedUser is the output record. Country and FavoriteCategory are never
// empty; use NewEnrichedUser to build one.
type EnrichedUser struct {
	ID               int    `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Age              int    `json:"age"`
	Gender           string `json:"gender"`
	Country          string `json:"country"`
	FavoriteCategory string `json:"favoriteCategory"`
}

// NewEnrichedUser merges a raw user with its derived fields. Empty derived
// values become Unknown.
func NewEnrichedUser(u RawUser, country, favoriteCategory string) EnrichedUser {
	return EnrichedUser{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Age:              u.Age,
		Gender:           u.Gender,
		Country:          lo.Ternary(country == "", Unknown, country),
		FavoriteCategory: lo.Ternary(favoriteCategory == "", Unknown, favoriteCategory),
	}
}

// Record returns the flat record in Columns order
func (e EnrichedUser) Record() []string {
	return []string{
		e.FirstName,
		e.LastName,
		strconv.Itoa(e.Age),
		e.Gender,
		e.Country,
		e.FavoriteCategory,
	}
}

// Records flattens users in order
func Records(users []EnrichedUser) [][]string {
	return lo.Map(users, func(u EnrichedUser, _ int) []string {
		return u.Record()
	})
}
