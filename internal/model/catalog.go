package model

import "time"

// Catalog rows are read-only reference data searched by keyword.
// Unlike the plan entities they are serialized directly.

type Flight struct {
	ID            uint64    `json:"id"`
	FlightNumber  string    `json:"flightNumber"`
	Airline       string    `json:"airline"`
	FromLocation  string    `json:"fromLocation"`
	ToLocation    string    `json:"toLocation"`
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	Price         float64   `json:"price"`
}

type Bus struct {
	ID            uint64    `json:"id"`
	BusName       string    `json:"busName"`
	FromLocation  string    `json:"fromLocation"`
	ToLocation    string    `json:"toLocation"`
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	Price         float64   `json:"price"`
}

type Train struct {
	ID            uint64    `json:"id"`
	TrainName     string    `json:"trainName"`
	TrainNumber   string    `json:"trainNumber"`
	FromLocation  string    `json:"fromLocation"`
	ToLocation    string    `json:"toLocation"`
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	Price         float64   `json:"price"`
}

type Hotel struct {
	ID             uint64     `json:"id"`
	Name           string     `json:"name"`
	City           string     `json:"city"`
	Address        string     `json:"address"`
	PricePerNight  float64    `json:"pricePerNight"`
	IsAvailable    bool       `json:"isAvailable"`
	AvailableRooms int        `json:"availableRooms"`
	AvailableFrom  *time.Time `json:"availableFrom,omitempty"`
	AvailableTo    *time.Time `json:"availableTo,omitempty"`
}
