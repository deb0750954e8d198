// Package rates resolves the conversion rates used by the calculator. A
// lookup never fails: stored snapshots are preferred, then the last snapshot
// value seen before a store failure, then the hardcoded defaults.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/models"
)

const (
	cacheKey     = "billing:rates:current"
	lastKnownKey = "billing:rates:last_known"
)

// Source labels where a resolved rate came from.
const (
	SourceSnapshot  = "snapshot"
	SourceLastKnown = "last_known"
	SourceDefault   = "default"
)

// ErrUpstreamUnavailable is returned by Refresh when the upstream source
// cannot be read. Stored rates are left untouched.
var ErrUpstreamUnavailable = errors.New("rates upstream unavailable")

// Repository is the snapshot storage the provider reads and writes.
type Repository interface {
	Latest(ctx context.Context, kind models.RateKind) (*models.Rate, error)
	Replace(ctx context.Context, kind models.RateKind, value float64, source string, at time.Time) (*models.Rate, error)
}

// Resolved is the set of rates with their provenance. ChangedAt is the
// newest valid_from among the snapshots used; zero when only defaults apply.
type Resolved struct {
	calculator.Rates
	Sources    map[models.RateKind]string `json:"sources"`
	ResolvedAt time.Time                  `json:"resolved_at"`
	ChangedAt  time.Time                  `json:"changed_at"`
}

// knownRate is a snapshot value kept for store outages.
type knownRate struct {
	Value     float64   `json:"value"`
	ValidFrom time.Time `json:"valid_from"`
}

// Provider resolves current rates.
type Provider struct {
	repo          Repository
	cache         Cache
	fetcher       Fetcher
	defaults      calculator.Rates
	ttl           time.Duration
	lookupTimeout time.Duration
	log           logrus.FieldLogger
	now           func() time.Time

	mu        sync.Mutex
	lastKnown map[models.RateKind]knownRate
}

// Option configures a Provider.
type Option func(*Provider)

// WithFetcher sets the upstream used by Refresh.
func WithFetcher(f Fetcher) Option {
	return func(p *Provider) { p.fetcher = f }
}

// WithCache sets the cache and its TTL.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(p *Provider) {
		p.cache = c
		p.ttl = ttl
	}
}

// WithDefaults overrides the hardcoded fallback rates.
func WithDefaults(r calculator.Rates) Option {
	return func(p *Provider) { p.defaults = r.WithDefaults() }
}

// WithLookupTimeout bounds each snapshot read.
func WithLookupTimeout(d time.Duration) Option {
	return func(p *Provider) { p.lookupTimeout = d }
}

// NewProvider builds a provider over repo.
func NewProvider(repo Repository, log logrus.FieldLogger, opts ...Option) *Provider {
	p := &Provider{
		repo:          repo,
		cache:         NewMemoryCache(),
		defaults:      calculator.DefaultRates(),
		ttl:           5 * time.Minute,
		lookupTimeout: 3 * time.Second,
		log:           log,
		now:           time.Now,
		lastKnown:     make(map[models.RateKind]knownRate),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Current returns the rates to use now. It never fails. A resolution that
// hit a store error is returned but not cached, so the next call retries
// the store.
func (p *Provider) Current(ctx context.Context) Resolved {
	if raw, ok := p.cache.Get(ctx, cacheKey); ok {
		var cached Resolved
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached
		}
	}

	resolved, degraded := p.resolve(ctx)
	if degraded {
		return resolved
	}
	if raw, err := json.Marshal(resolved); err == nil {
		p.cache.Set(ctx, cacheKey, raw, p.ttl)
	}
	return resolved
}

func (p *Provider) resolve(ctx context.Context) (Resolved, bool) {
	res := Resolved{
		Rates:      p.defaults,
		Sources:    make(map[models.RateKind]string, len(models.RateKinds)),
		ResolvedAt: p.now().UTC(),
	}

	degraded := false
	fresh := make(map[models.RateKind]knownRate)
	var known map[models.RateKind]knownRate

	for _, kind := range models.RateKinds {
		rate, err := p.lookup(ctx, kind)
		var (
			value  float64
			from   time.Time
			source = SourceDefault
		)
		switch {
		case err != nil:
			degraded = true
			if known == nil {
				known = p.known(ctx)
			}
			if k, ok := known[kind]; ok && k.Value > 0 {
				value, from, source = k.Value, k.ValidFrom, SourceLastKnown
			}
			p.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "source": source}).Warn("rate lookup failed")
		case rate != nil && rate.Value > 0:
			value, from, source = rate.Value, rate.ValidFrom, SourceSnapshot
			fresh[kind] = knownRate{Value: rate.Value, ValidFrom: rate.ValidFrom}
		}

		res.Sources[kind] = source
		if source == SourceDefault {
			continue
		}
		if from.After(res.ChangedAt) {
			res.ChangedAt = from
		}
		switch kind {
		case models.RateUSDCOP:
			res.USDCOP = value
		case models.RateEURUSD:
			res.EURUSD = value
		case models.RateGBPUSD:
			res.GBPUSD = value
		}
	}

	if len(fresh) > 0 {
		p.remember(ctx, fresh)
	}
	return res, degraded
}

func (p *Provider) lookup(ctx context.Context, kind models.RateKind) (*models.Rate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.lookupTimeout)
	defer cancel()
	return p.repo.Latest(ctx, kind)
}

// remember records snapshot values in memory and in the shared cache, where
// they do not expire.
func (p *Provider) remember(ctx context.Context, fresh map[models.RateKind]knownRate) {
	p.mu.Lock()
	for kind, k := range fresh {
		p.lastKnown[kind] = k
	}
	all := make(map[models.RateKind]knownRate, len(p.lastKnown))
	for kind, k := range p.lastKnown {
		all[kind] = k
	}
	p.mu.Unlock()

	if raw, err := json.Marshal(all); err == nil {
		p.cache.Set(ctx, lastKnownKey, raw, 0)
	}
}

// known returns the last snapshot values, preferring this process's memory
// over the shared cache.
func (p *Provider) known(ctx context.Context) map[models.RateKind]knownRate {
	out := make(map[models.RateKind]knownRate)
	if raw, ok := p.cache.Get(ctx, lastKnownKey); ok {
		_ = json.Unmarshal(raw, &out)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for kind, k := range p.lastKnown {
		out[kind] = k
	}
	return out
}

// Set stores an admin-provided snapshot and drops the cached rates.
func (p *Provider) Set(ctx context.Context, kind models.RateKind, value float64, source string) (*models.Rate, error) {
	if value <= 0 {
		return nil, fmt.Errorf("rate %s must be positive", kind)
	}
	rate, err := p.repo.Replace(ctx, kind, value, source, p.now().UTC())
	if err != nil {
		return nil, err
	}
	p.cache.Delete(ctx, cacheKey)
	return rate, nil
}

// Refresh pulls rates from the upstream and stores them as new snapshots.
// On upstream failure it returns ErrUpstreamUnavailable and changes nothing.
func (p *Provider) Refresh(ctx context.Context) (map[models.RateKind]float64, error) {
	if p.fetcher == nil {
		return nil, fmt.Errorf("%w: no upstream configured", ErrUpstreamUnavailable)
	}
	values, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.log.WithError(err).Warn("rates refresh failed, keeping stored rates")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	at := p.now().UTC()
	for _, kind := range models.RateKinds {
		v, ok := values[kind]
		if !ok || v <= 0 {
			continue
		}
		if _, err := p.repo.Replace(ctx, kind, v, p.fetcher.Name(), at); err != nil {
			return nil, fmt.Errorf("store %s rate: %w", kind, err)
		}
	}
	p.cache.Delete(ctx, cacheKey)
	p.log.WithField("rates", values).Info("rates refreshed from upstream")
	return values, nil
}
