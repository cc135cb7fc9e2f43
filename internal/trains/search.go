package trains

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leonardcser/train-mcp/internal/cache"
	"github.com/leonardcser/train-mcp/internal/logger"
)

// DefaultFallbackTTL applies to baseline results cached after a provider failure.
const DefaultFallbackTTL = time.Minute

var ErrNotRoundtrip = errors.New("trains: not a round trip")

// searchKey identifies a search; Direction is only set for return legs.
type searchKey struct {
	SearchParams
	Direction Direction `json:"direction,omitempty"`
}

type SearcherOptions struct {
	// TTL applies to successful results. Defaults to cache.DefaultTTL.
	TTL time.Duration
	// FallbackTTL applies to baseline results. Defaults to DefaultFallbackTTL.
	FallbackTTL time.Duration
	// Shared is an optional second cache tier, typically the cache daemon.
	Shared cache.KV
	// Now is the clock of the in-process cache. Defaults to time.Now.
	Now func() time.Time
}

// Searcher memoizes provider results by search parameters.
type Searcher struct {
	provider    Provider
	memory      *cache.Memory[[]Connection]
	shared      cache.KV
	ttl         time.Duration
	fallbackTTL time.Duration
	group       singleflight.Group
}

func NewSearcher(provider Provider, opts SearcherOptions) *Searcher {
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	if opts.FallbackTTL <= 0 {
		opts.FallbackTTL = DefaultFallbackTTL
	}
	return &Searcher{
		provider:    provider,
		memory:      cache.New[[]Connection](cache.Options{DefaultTTL: opts.TTL, Now: opts.Now}),
		shared:      opts.Shared,
		ttl:         opts.TTL,
		fallbackTTL: opts.FallbackTTL,
	}
}

// Cache exposes the in-process cache for introspection.
func (s *Searcher) Cache() *cache.Memory[[]Connection] { return s.memory }

// Shared returns the second cache tier, or nil.
func (s *Searcher) Shared() cache.KV { return s.shared }

func sharedKey(key string) string { return "train_search|" + key }

// Search returns outbound connections for params.
func (s *Searcher) Search(ctx context.Context, params SearchParams) ([]Connection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.lookup(ctx, searchKey{SearchParams: params}, Outbound)
}

// SearchReturn returns return-leg connections. One-way trips and round trips
// without a return date yield an empty result.
func (s *Searcher) SearchReturn(ctx context.Context, params SearchParams) ([]Connection, error) {
	if params.TripType != Roundtrip || params.ReturnDate == "" {
		return []Connection{}, nil
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.lookup(ctx, searchKey{SearchParams: params.returnLeg(), Direction: Return}, Return)
}

// Roundtrip searches both legs and totals the cheapest pair.
func (s *Searcher) Roundtrip(ctx context.Context, params SearchParams) (*RoundtripResult, error) {
	if params.TripType != Roundtrip {
		return nil, ErrNotRoundtrip
	}
	out, err := s.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	ret, err := s.SearchReturn(ctx, params)
	if err != nil {
		return nil, err
	}
	res := &RoundtripResult{Outbound: out, Return: ret, OvernightStays: params.OvernightStays}
	if res.OvernightStays <= 0 {
		res.OvernightStays = 1
	}
	if len(out) > 0 && len(ret) > 0 {
		res.TotalPrice = Sort(out, Cheapest)[0].Price + Sort(ret, Cheapest)[0].Price
		res.FastestDuration = FormatDuration(
			ParseDuration(Sort(out, Fastest)[0].Duration) + ParseDuration(Sort(ret, Fastest)[0].Duration))
	}
	return res, nil
}

func (s *Searcher) lookup(ctx context.Context, k searchKey, dir Direction) ([]Connection, error) {
	if n := s.memory.SweepExpired(); n > 0 {
		logger.Infof("Swept %d expired search results", n)
	}
	key, err := cache.GenerateKey(k)
	if err != nil {
		return nil, err
	}
	if v, ok := s.memory.Get(key); ok {
		logger.Infof("Returning cached %s result for %s", dir, key)
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Concurrent misses for the same key share one load. The load is detached
	// from any single caller's cancellation; each caller waits on its own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		if v, ok := s.memory.Get(key); ok {
			return v, nil
		}
		return s.load(loadCtx, key, k.SearchParams, dir)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]Connection), nil
	}
}

// load consults the shared tier, then the provider, and fills both caches.
func (s *Searcher) load(ctx context.Context, key string, params SearchParams, dir Direction) ([]Connection, error) {
	if s.shared != nil {
		b, err := s.shared.Get(sharedKey(key))
		switch {
		case err == nil:
			var conns []Connection
			if json.Unmarshal(b, &conns) == nil {
				logger.Infof("Returning shared cached %s result for %s", dir, key)
				s.memory.Set(key, conns, s.ttl)
				return conns, nil
			}
		case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrExpired):
		default:
			logger.Warnf("Shared cache get failed: %v", err)
		}
	}

	ttl := s.ttl
	conns, err := s.provider.Connections(ctx, params, dir)
	if err != nil {
		logger.Errorf("Error fetching %s connections: %v", dir, err)
		conns = Baseline(dir)
		ttl = s.fallbackTTL
	}
	s.memory.Set(key, conns, ttl)
	if s.shared != nil {
		if b, err := json.Marshal(conns); err == nil {
			if err := s.shared.Put(sharedKey(key), b, ttl); err != nil {
				logger.Warnf("Shared cache put failed: %v", err)
			}
		}
	}
	return conns, nil
}
