package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"cart-enricher/internal/models"

	"github.com/gorilla/mux"
)

// FakeUpstream serves the catalog and geocoder endpoints from memory.
// Routes:
//
//	GET /users?limit=&skip=&select=
//	GET /carts/user/{id}
//	GET /products/{id}?select=category
//	GET /reverse?lat=&lon=&format=json
type FakeUpstream struct {
	Server *httptest.Server
	Router *mux.Router

	mu              sync.Mutex
	users           []models.RawUser
	carts           map[int][]models.Cart
	categories      map[int]string
	countries       map[string]string
	forced          map[string]int
	geocodeFailures int
	geocodeStatus   int
	hits            map[string]int
	queries         map[string][]url.Values
}

// NewFakeUpstream starts the fake and closes it when the test ends
func NewFakeUpstream(t testing.TB) *FakeUpstream {
	t.Helper()

	f := &FakeUpstream{
		Router:     mux.NewRouter(),
		carts:      make(map[int][]models.Cart),
		categories: make(map[int]string),
		countries:  make(map[string]string),
		forced:     make(map[string]int),
		hits:       make(map[string]int),
		queries:    make(map[string][]url.Values),
	}

	f.Router.HandleFunc("/users", f.handleUsers).Methods(http.MethodGet)
	f.Router.HandleFunc("/carts/user/{id:[0-9]+}", f.handleCarts).Methods(http.MethodGet)
	f.Router.HandleFunc("/products/{id:[0-9]+}", f.handleProduct).Methods(http.MethodGet)
	f.Router.HandleFunc("/reverse", f.handleReverse).Methods(http.MethodGet)

	f.Server = httptest.NewServer(f.Router)
	t.Cleanup(f.Server.Close)

	return f
}

func (f *FakeUpstream) UsersURL() string    { return f.Server.URL + "/users" }
func (f *FakeUpstream) CartsURL() string    { return f.Server.URL + "/carts" }
func (f *FakeUpstream) ProductsURL() string { return f.Server.URL + "/products" }
func (f *FakeUpstream) GeocoderURL() string { return f.Server.URL + "/reverse" }

// WithUsers appends users to the listing
func (f *FakeUpstream) WithUsers(users ...models.RawUser) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, users...)
	return f
}

// WithCarts sets the carts returned for userID
func (f *FakeUpstream) WithCarts(userID int, carts ...models.Cart) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range carts {
		carts[i].UserID = userID
	}
	f.carts[userID] = carts
	return f
}

// WithCategory sets the category of productID
func (f *FakeUpstream) WithCategory(productID int, category string) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[productID] = category
	return f
}

// WithCountry makes coordinates resolve to country
func (f *FakeUpstream) WithCountry(c models.Coordinates, country string) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countries[coordKey(c.Lat, c.Lng)] = country
	return f
}

// Fail forces status for a route key: "users", "carts:{id}", "products:{id}" or "geocoder"
func (f *FakeUpstream) Fail(key string, status int) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced[key] = status
	return f
}

// FailGeocodes answers the next n geocode requests with status
func (f *FakeUpstream) FailGeocodes(n, status int) *FakeUpstream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geocodeFailures = n
	f.geocodeStatus = status
	return f
}

// Hits returns how many requests reached route ("users", "carts", "products", "geocoder")
func (f *FakeUpstream) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// Queries returns the query strings seen on route, in arrival order
func (f *FakeUpstream) Queries(route string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.queries[route]...)
}

func (f *FakeUpstream) record(route string, r *http.Request) {
	f.hits[route]++
	f.queries[route] = append(f.queries[route], r.URL.Query())
}

func (f *FakeUpstream) handleUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("users", r)

	if status, ok := f.forced["users"]; ok {
		writeJSON(w, status, map[string]string{"message": "forced failure"})
		return
	}

	q := r.URL.Query()
	limit, err1 := strconv.Atoi(q.Get("limit"))
	skip, err2 := strconv.Atoi(q.Get("skip"))
	if err1 != nil || err2 != nil || limit < 0 || skip < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid pagination"})
		return
	}

	start := skip
	if start > len(f.users) {
		start = len(f.users)
	}
	end := len(f.users)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var fields []string
	if sel := q.Get("select"); sel != "" {
		fields = strings.Split(sel, ",")
	}

	page := make([]map[string]interface{}, 0, end-start)
	for _, u := range f.users[start:end] {
		page = append(page, project(u, fields))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": page,
		"total": len(f.users),
		"skip":  skip,
		"limit": limit,
	})
}

func (f *FakeUpstream) handleCarts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("carts", r)

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if status, ok := f.forced[fmt.Sprintf("carts:%d", id)]; ok {
		writeJSON(w, status, map[string]string{"message": "forced failure"})
		return
	}

	carts := f.carts[id]
	if carts == nil {
		carts = []models.Cart{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"carts": carts, "total": len(carts)})
}

func (f *FakeUpstream) handleProduct(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("products", r)

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if status, ok := f.forced[fmt.Sprintf("products:%d", id)]; ok {
		writeJSON(w, status, map[string]string{"message": "forced failure"})
		return
	}

	category, ok := f.categories[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("Product with id '%d' not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "category": category})
}

func (f *FakeUpstream) handleReverse(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("geocoder", r)

	if status, ok := f.forced["geocoder"]; ok {
		writeJSON(w, status, map[string]string{"error": "forced failure"})
		return
	}
	if f.geocodeFailures > 0 {
		f.geocodeFailures--
		writeJSON(w, f.geocodeStatus, map[string]string{"error": "temporary failure"})
		return
	}

	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid coordinates"})
		return
	}

	country, ok := f.countries[coordKey(lat, lon)]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Unable to geocode"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"display_name": country,
		"address":      map[string]string{"country": country},
	})
}

// project keeps id plus the selected top-level fields, like the real listing does
func project(u models.RawUser, fields []string) map[string]interface{} {
	data, _ := json.Marshal(u)
	var all map[string]interface{}
	_ = json.Unmarshal(data, &all)

	if len(fields) == 0 {
		return all
	}

	out := map[string]interface{}{"id": all["id"]}
	for _, field := range fields {
		if v, ok := all[field]; ok {
			out[field] = v
		}
	}
	return out
}

func coordKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
