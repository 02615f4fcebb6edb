package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/ai-travel-planner/internal/model"
)

// SearchLimit caps how many rows a single catalog search returns.
const SearchLimit = 50

// SearchRepo runs keyword searches over the catalog tables.
type SearchRepo struct {
	db *sql.DB
}

func NewSearchRepo(db *sql.DB) *SearchRepo {
	return &SearchRepo{db: db}
}

// likeAny builds "(LOWER(c1) LIKE ? OR LOWER(c2) LIKE ? ...)" with one arg per column.
func likeAny(term string, cols ...string) (string, []any) {
	parts := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	for _, c := range cols {
		parts = append(parts, "LOWER("+c+") LIKE ?")
		args = append(args, pattern)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// SearchFlights matches flight number, origin or destination.
func (r *SearchRepo) SearchFlights(ctx context.Context, term string) ([]model.Flight, error) {
	cond, args := likeAny(term, "flight_number", "from_location", "to_location")
	rows, err := r.db.QueryContext(ctx, `SELECT id, flight_number, airline, from_location, to_location,
		departure_time, arrival_time, price FROM flights WHERE `+cond+
		` ORDER BY departure_time LIMIT ?`, append(args, SearchLimit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Flight{}
	for rows.Next() {
		var f model.Flight
		if err := rows.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.FromLocation, &f.ToLocation,
			&f.DepartureTime, &f.ArrivalTime, &f.Price); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SearchBuses matches operator name, origin or destination.
func (r *SearchRepo) SearchBuses(ctx context.Context, term string) ([]model.Bus, error) {
	cond, args := likeAny(term, "bus_name", "from_location", "to_location")
	rows, err := r.db.QueryContext(ctx, `SELECT id, bus_name, from_location, to_location,
		departure_time, arrival_time, price FROM buses WHERE `+cond+
		` ORDER BY departure_time LIMIT ?`, append(args, SearchLimit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Bus{}
	for rows.Next() {
		var b model.Bus
		if err := rows.Scan(&b.ID, &b.BusName, &b.FromLocation, &b.ToLocation,
			&b.DepartureTime, &b.ArrivalTime, &b.Price); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SearchTrains matches train name, origin or destination.
func (r *SearchRepo) SearchTrains(ctx context.Context, term string) ([]model.Train, error) {
	cond, args := likeAny(term, "train_name", "from_location", "to_location")
	rows, err := r.db.QueryContext(ctx, `SELECT id, train_name, train_number, from_location, to_location,
		departure_time, arrival_time, price FROM trains WHERE `+cond+
		` ORDER BY departure_time LIMIT ?`, append(args, SearchLimit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Train{}
	for rows.Next() {
		var t model.Train
		if err := rows.Scan(&t.ID, &t.TrainName, &t.TrainNumber, &t.FromLocation, &t.ToLocation,
			&t.DepartureTime, &t.ArrivalTime, &t.Price); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SearchHotels matches hotel name, city or address.
func (r *SearchRepo) SearchHotels(ctx context.Context, term string) ([]model.Hotel, error) {
	cond, args := likeAny(term, "name", "city", "address")
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, city, address, price_per_night, is_available,
		available_rooms, available_from, available_to FROM hotels WHERE `+cond+
		` ORDER BY name LIMIT ?`, append(args, SearchLimit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Hotel{}
	for rows.Next() {
		var h model.Hotel
		if err := rows.Scan(&h.ID, &h.Name, &h.City, &h.Address, &h.PricePerNight, &h.IsAvailable,
			&h.AvailableRooms, &h.AvailableFrom, &h.AvailableTo); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
