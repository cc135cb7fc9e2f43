package trains

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Order names a result ordering.
type Order string

const (
	Fastest      Order = "fastest"
	Cheapest     Order = "cheapest"
	LeastChanges Order = "least-changes"
	BestValue    Order = "best-value"
)

// Orders lists the supported orderings.
var Orders = []Order{Fastest, Cheapest, LeastChanges, BestValue}

// ParseOrder validates s. An empty string selects Fastest.
func ParseOrder(s string) (Order, error) {
	if s == "" {
		return Fastest, nil
	}
	for _, o := range Orders {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

var durationRE = regexp.MustCompile(`(\d+)h\s*(\d+)m`)

// ParseDuration converts "5h 10m" into minutes. Unparseable input yields 0.
func ParseDuration(d string) int {
	m := durationRE.FindStringSubmatch(d)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return h*60 + mins
}

// FormatDuration renders minutes as "5h 05m".
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// valueScore is price per hour of travel plus a penalty per change; lower is better.
func valueScore(c Connection) float64 {
	hours := float64(ParseDuration(c.Duration)) / 60
	return float64(c.Price)/hours + float64(c.Changes*5)
}

// Sort returns a new slice ordered by o. The input is not modified.
func Sort(conns []Connection, o Order) []Connection {
	out := append([]Connection(nil), conns...)
	var less func(a, b Connection) bool
	switch o {
	case Fastest:
		less = func(a, b Connection) bool { return ParseDuration(a.Duration) < ParseDuration(b.Duration) }
	case Cheapest:
		less = func(a, b Connection) bool { return a.Price < b.Price }
	case LeastChanges:
		less = func(a, b Connection) bool {
			if a.Changes != b.Changes {
				return a.Changes < b.Changes
			}
			return ParseDuration(a.Duration) < ParseDuration(b.Duration)
		}
	case BestValue:
		less = func(a, b Connection) bool { return valueScore(a) < valueScore(b) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Filters bound the connections shown to the caller. Zero values disable a bound.
type Filters struct {
	MaxPrice    int
	MaxDuration int // minutes
	MaxChanges  int
	DirectOnly  bool
}

// Filter returns the connections matching f in their original order.
func Filter(conns []Connection, f Filters) []Connection {
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		if f.MaxPrice > 0 && c.Price > f.MaxPrice {
			continue
		}
		if f.MaxDuration > 0 && ParseDuration(c.Duration) > f.MaxDuration {
			continue
		}
		if f.DirectOnly && c.Changes > 0 {
			continue
		}
		if f.MaxChanges > 0 && c.Changes > f.MaxChanges {
			continue
		}
		out = append(out, c)
	}
	return out
}
