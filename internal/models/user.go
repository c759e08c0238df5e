// Package models holds the typed records that cross component boundaries.
// Upstream JSON is decoded into these types at the client edge.
package models

import "fmt"

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects pairs outside the WGS84 range
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lng)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Address carries the optional location of a user
type Address struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// RawUser is a user as returned by the catalog. Fields not selected in the
// request stay at their zero value.
type RawUser struct {
	ID        int     `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Age       int     `json:"age"`
	Gender    string  `json:"gender"`
	Address   Address `json:"address"`
}

// HasCoordinates reports whether the user can be geocoded
func (u RawUser) HasCoordinates() bool {
	return u.Address.Coordinates != nil
}
