package trains

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestMockProviderWeekendSurcharge(t *testing.T) {
	p := NewMockProvider(0, 1)
	// 2025-08-16 is a Saturday.
	conns, err := p.Connections(context.Background(), SearchParams{TripType: OneWay, DepartureDate: "2025-08-16"}, Outbound)
	if err != nil {
		t.Fatal(err)
	}
	base := Baseline(Outbound)
	if len(conns) != len(base) {
		t.Fatalf("expected %d connections, got %d", len(base), len(conns))
	}
	for i, c := range conns {
		want := int(math.Round(float64(base[i].Price) * WeekendSurcharge))
		if c.Price != want {
			t.Fatalf("connection %d: expected price %d, got %d", i, want, c.Price)
		}
	}
	if conns[0].Price != 45 {
		t.Fatalf("expected 39 to become 45, got %d", conns[0].Price)
	}
}

func TestMockProviderWeekdayVariation(t *testing.T) {
	p := NewMockProvider(0, 42)
	conns, err := p.Connections(context.Background(), SearchParams{TripType: Roundtrip, DepartureDate: "2025-08-13"}, Return)
	if err != nil {
		t.Fatal(err)
	}
	base := Baseline(Return)
	if len(conns) != 5 {
		t.Fatalf("expected 5 return connections, got %d", len(conns))
	}
	for i, c := range conns {
		lo := int(math.Round(float64(base[i].Price) * 0.9))
		hi := int(math.Round(float64(base[i].Price) * 1.1))
		if c.Price < lo || c.Price > hi {
			t.Fatalf("connection %d: price %d outside [%d, %d]", i, c.Price, lo, hi)
		}
		if c.Departure != base[i].Departure {
			t.Fatalf("connection %d: timetable changed", i)
		}
	}
}

func TestMockProviderDoesNotMutateTimetable(t *testing.T) {
	p := NewMockProvider(0, 1)
	_, _ = p.Connections(context.Background(), SearchParams{DepartureDate: "2025-08-16"}, Outbound)
	if Baseline(Outbound)[0].Price != 39 {
		t.Fatal("expected baseline timetable to be unchanged")
	}
}

func TestMockProviderErrors(t *testing.T) {
	p := NewMockProvider(0, 1)
	if _, err := p.Connections(context.Background(), SearchParams{DepartureDate: "tomorrow"}, Outbound); err == nil {
		t.Fatal("expected error for unparseable date")
	}

	slow := NewMockProvider(time.Hour, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := slow.Connections(ctx, SearchParams{DepartureDate: "2025-08-15"}, Outbound); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
