package trains

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Provider produces connections for one direction of a search.
type Provider interface {
	Connections(ctx context.Context, params SearchParams, dir Direction) ([]Connection, error)
}

var outboundTimetable = []Connection{
	{Duration: "5h 10m", Price: 39, Changes: 0, Departure: "08:45", Arrival: "13:55", TrainType: "ICE International", Carrier: "Deutsche Bahn"},
	{Duration: "6h 05m", Price: 29, Changes: 1, Departure: "07:00", Arrival: "13:05", TrainType: "IC + Intercity", Carrier: "DB/NS"},
	{Duration: "5h 45m", Price: 45, Changes: 0, Departure: "10:30", Arrival: "16:15", TrainType: "ICE", Carrier: "Deutsche Bahn"},
	{Duration: "7h 20m", Price: 25, Changes: 2, Departure: "06:15", Arrival: "13:35", TrainType: "Regional + IC", Carrier: "DB/NS"},
	{Duration: "5h 30m", Price: 52, Changes: 0, Departure: "14:20", Arrival: "19:50", TrainType: "IC", Carrier: "DB/NS"},
	{Duration: "4h 55m", Price: 65, Changes: 0, Departure: "16:45", Arrival: "21:40", TrainType: "ICE", Carrier: "DB"},
	{Duration: "6h 30m", Price: 35, Changes: 1, Departure: "12:15", Arrival: "18:45", TrainType: "IC + NS", Carrier: "DB/NS"},
}

var returnTimetable = []Connection{
	{Duration: "5h 15m", Price: 42, Changes: 0, Departure: "09:30", Arrival: "14:45", TrainType: "IC", Carrier: "NS/DB"},
	{Duration: "6h 10m", Price: 31, Changes: 1, Departure: "08:15", Arrival: "14:25", TrainType: "NS + IC", Carrier: "NS/DB"},
	{Duration: "5h 50m", Price: 48, Changes: 0, Departure: "11:45", Arrival: "17:35", TrainType: "ICE", Carrier: "DB"},
	{Duration: "7h 25m", Price: 27, Changes: 2, Departure: "07:30", Arrival: "14:55", TrainType: "Regional + IC", Carrier: "NS/DB"},
	{Duration: "5h 35m", Price: 55, Changes: 0, Departure: "15:10", Arrival: "20:45", TrainType: "IC", Carrier: "NS/DB"},
}

// WeekendSurcharge multiplies prices for Saturday and Sunday departures.
const WeekendSurcharge = 1.15

// Baseline returns an unpriced copy of the fixed timetable for dir.
func Baseline(dir Direction) []Connection {
	src := outboundTimetable
	if dir == Return {
		src = returnTimetable
	}
	return append([]Connection(nil), src...)
}

// MockProvider synthesizes connections from a fixed timetable. Weekend
// departures carry a surcharge; weekday prices vary by up to ±10%.
type MockProvider struct {
	// Latency simulates upstream response time.
	Latency time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMockProvider(latency time.Duration, seed int64) *MockProvider {
	return &MockProvider{Latency: latency, rnd: rand.New(rand.NewSource(seed))}
}

func (p *MockProvider) Connections(ctx context.Context, params SearchParams, dir Direction) ([]Connection, error) {
	if p.Latency > 0 {
		t := time.NewTimer(p.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	conns := Baseline(dir)
	if params.DepartureDate == "" {
		return conns, nil
	}
	date, err := time.Parse(DateLayout, params.DepartureDate)
	if err != nil {
		return nil, err
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		for i := range conns {
			conns[i].Price = int(math.Round(float64(conns[i].Price) * WeekendSurcharge))
		}
		return conns, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range conns {
		conns[i].Price = int(math.Round(float64(conns[i].Price) * (0.9 + p.rnd.Float64()*0.2)))
	}
	return conns, nil
}
