// Package trains answers train connection searches, memoizing results in a TTL cache.
package trains

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the format of SearchParams dates.
const DateLayout = "2006-01-02"

type TripType string

const (
	OneWay    TripType = "one-way"
	Roundtrip TripType = "roundtrip"
)

type Direction string

const (
	Outbound Direction = "outbound"
	Return   Direction = "return"
)

var ErrInvalidParams = errors.New("trains: invalid search parameters")

// SearchParams are the trip parameters collected from the caller.
type SearchParams struct {
	TripType       TripType `json:"tripType"`
	DepartureDate  string   `json:"departureDate"`
	ReturnDate     string   `json:"returnDate,omitempty"`
	OvernightStays int      `json:"overnightStays,omitempty"`
}

// Connection is a single train journey offer.
type Connection struct {
	Duration  string `json:"duration"`
	Price     int    `json:"price"`
	Changes   int    `json:"changes"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	TrainType string `json:"trainType"`
	Carrier   string `json:"carrier"`
}

// RoundtripResult pairs both legs of a round trip with a summary: the price
// of the cheapest outbound plus cheapest return, and the duration of the
// fastest outbound plus fastest return.
type RoundtripResult struct {
	Outbound        []Connection `json:"outbound"`
	Return          []Connection `json:"return"`
	TotalPrice      int          `json:"totalPrice"`
	FastestDuration string       `json:"fastestDuration"`
	OvernightStays  int          `json:"overnightStays"`
}

// Validate checks the parameters a search needs before touching the cache.
func (p SearchParams) Validate() error {
	switch p.TripType {
	case OneWay, Roundtrip:
	default:
		return fmt.Errorf("%w: unknown trip type %q", ErrInvalidParams, p.TripType)
	}
	if p.DepartureDate == "" {
		return fmt.Errorf("%w: departure date is required", ErrInvalidParams)
	}
	dep, err := time.Parse(DateLayout, p.DepartureDate)
	if err != nil {
		return fmt.Errorf("%w: departure date: %v", ErrInvalidParams, err)
	}
	if p.OvernightStays < 0 {
		return fmt.Errorf("%w: overnight stays must not be negative", ErrInvalidParams)
	}
	if p.TripType != Roundtrip {
		return nil
	}
	if p.ReturnDate == "" {
		return fmt.Errorf("%w: return date is required for round trips", ErrInvalidParams)
	}
	ret, err := time.Parse(DateLayout, p.ReturnDate)
	if err != nil {
		return fmt.Errorf("%w: return date: %v", ErrInvalidParams, err)
	}
	if ret.Before(dep) {
		return fmt.Errorf("%w: return date is before departure date", ErrInvalidParams)
	}
	return nil
}

// returnLeg derives the parameters of the return journey.
func (p SearchParams) returnLeg() SearchParams {
	return SearchParams{
		TripType:       p.TripType,
		DepartureDate:  p.ReturnDate,
		OvernightStays: p.OvernightStays,
	}
}
