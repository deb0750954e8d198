package rates

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/models"
)

type fakeRepo struct {
	mu      sync.Mutex
	rates   map[models.RateKind]float64
	at      map[models.RateKind]time.Time
	err     error
	lookups int
}

func (r *fakeRepo) Latest(_ context.Context, kind models.RateKind) (*models.Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.rates[kind]
	if !ok {
		return nil, nil
	}
	return &models.Rate{Kind: kind, Value: v, ValidFrom: r.at[kind], Active: true}, nil
}

func (r *fakeRepo) Replace(_ context.Context, kind models.RateKind, value float64, source string, at time.Time) (*models.Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.rates == nil {
		r.rates = map[models.RateKind]float64{}
	}
	if r.at == nil {
		r.at = map[models.RateKind]time.Time{}
	}
	r.rates[kind] = value
	r.at[kind] = at
	return &models.Rate{Kind: kind, Value: value, Source: source, ValidFrom: at, Active: true}, nil
}

func (r *fakeRepo) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakeRepo) lookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

type fakeFetcher struct {
	values map[models.RateKind]float64
	err    error
}

func (f fakeFetcher) Fetch(context.Context) (map[models.RateKind]float64, error) {
	return f.values, f.err
}

func (f fakeFetcher) Name() string { return "fake" }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestCurrentUsesSnapshotsAndDefaults(t *testing.T) {
	repo := &fakeRepo{rates: map[models.RateKind]float64{models.RateEURUSD: 1.08}}
	p := NewProvider(repo, quietLogger())

	got := p.Current(context.Background())
	assert.Equal(t, 1.08, got.EURUSD)
	assert.Equal(t, calculator.DefaultUSDCOP, got.USDCOP)
	assert.Equal(t, calculator.DefaultGBPUSD, got.GBPUSD)
	assert.Equal(t, SourceSnapshot, got.Sources[models.RateEURUSD])
	assert.Equal(t, SourceDefault, got.Sources[models.RateUSDCOP])
}

func TestCurrentNeverFailsWhenStoreIsDown(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	p := NewProvider(repo, quietLogger(), WithDefaults(calculator.Rates{USDCOP: 4100}))

	got := p.Current(context.Background())
	assert.Equal(t, 4100.0, got.USDCOP)
	assert.Equal(t, calculator.DefaultEURUSD, got.EURUSD)
	for _, kind := range models.RateKinds {
		assert.Equal(t, SourceDefault, got.Sources[kind])
	}
}

func TestCurrentKeepsLastKnownRateDuringOutage(t *testing.T) {
	repo := &fakeRepo{rates: map[models.RateKind]float64{models.RateUSDCOP: 4100}}
	cache := NewMemoryCache()
	p := NewProvider(repo, quietLogger(), WithCache(cache, time.Millisecond))
	ctx := context.Background()

	require.Equal(t, 4100.0, p.Current(ctx).USDCOP)
	time.Sleep(5 * time.Millisecond)

	repo.setErr(errors.New("connection refused"))
	got := p.Current(ctx)
	assert.Equal(t, 4100.0, got.USDCOP)
	assert.Equal(t, SourceLastKnown, got.Sources[models.RateUSDCOP])
	assert.Equal(t, SourceDefault, got.Sources[models.RateEURUSD], "never stored, so the default applies")

	// Another process sharing the cache sees the same value.
	other := NewProvider(repo, quietLogger(), WithCache(cache, time.Millisecond))
	assert.Equal(t, 4100.0, other.Current(ctx).USDCOP)
	assert.Equal(t, SourceLastKnown, other.Current(ctx).Sources[models.RateUSDCOP])
}

func TestDegradedResolutionIsNotCached(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	p := NewProvider(repo, quietLogger(), WithCache(NewMemoryCache(), time.Hour))
	ctx := context.Background()

	assert.Equal(t, SourceDefault, p.Current(ctx).Sources[models.RateUSDCOP])
	before := repo.lookupCount()

	repo.setErr(nil)
	_, err := repo.Replace(ctx, models.RateUSDCOP, 4250, "admin", time.Now())
	require.NoError(t, err)

	got := p.Current(ctx)
	assert.Greater(t, repo.lookupCount(), before)
	assert.Equal(t, 4250.0, got.USDCOP)
	assert.Equal(t, SourceSnapshot, got.Sources[models.RateUSDCOP])
}

func TestCurrentReportsWhenRatesChanged(t *testing.T) {
	repo := &fakeRepo{}
	p := NewProvider(repo, quietLogger())
	ctx := context.Background()
	assert.True(t, p.Current(ctx).ChangedAt.IsZero())

	_, err := p.Set(ctx, models.RateUSDCOP, 4200, "admin")
	require.NoError(t, err)
	assert.False(t, p.Current(ctx).ChangedAt.IsZero())
}

func TestCurrentIsCached(t *testing.T) {
	repo := &fakeRepo{rates: map[models.RateKind]float64{models.RateUSDCOP: 4000}}
	p := NewProvider(repo, quietLogger(), WithCache(NewMemoryCache(), time.Minute))

	p.Current(context.Background())
	p.Current(context.Background())
	assert.Equal(t, len(models.RateKinds), repo.lookups)
}

func TestSetInvalidatesCache(t *testing.T) {
	repo := &fakeRepo{rates: map[models.RateKind]float64{models.RateUSDCOP: 4000}}
	p := NewProvider(repo, quietLogger())
	ctx := context.Background()

	assert.Equal(t, 4000.0, p.Current(ctx).USDCOP)
	_, err := p.Set(ctx, models.RateUSDCOP, 4200, "admin")
	require.NoError(t, err)
	assert.Equal(t, 4200.0, p.Current(ctx).USDCOP)

	_, err = p.Set(ctx, models.RateUSDCOP, 0, "admin")
	assert.Error(t, err)
}

func TestRefreshStoresUpstreamRates(t *testing.T) {
	repo := &fakeRepo{}
	fetcher := fakeFetcher{values: map[models.RateKind]float64{
		models.RateUSDCOP: 4050, models.RateEURUSD: 1.1, models.RateGBPUSD: 1.3,
	}}
	p := NewProvider(repo, quietLogger(), WithFetcher(fetcher))

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	got := p.Current(context.Background())
	assert.Equal(t, calculator.Rates{USDCOP: 4050, EURUSD: 1.1, GBPUSD: 1.3}, got.Rates)
}

func TestRefreshFailureKeepsStoredRates(t *testing.T) {
	repo := &fakeRepo{rates: map[models.RateKind]float64{models.RateUSDCOP: 3950}}
	p := NewProvider(repo, quietLogger(), WithFetcher(fakeFetcher{err: errors.New("timeout")}))

	_, err := p.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 3950.0, p.Current(context.Background()).USDCOP)

	_, err = NewProvider(repo, quietLogger()).Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestHTTPFetcherParsesUSDTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"result":"success","base_code":"USD","rates":{"USD":1,"COP":4000,"EUR":0.8,"GBP":0.5}}`)
	}))
	defer srv.Close()

	values, err := NewHTTPFetcher(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4000.0, values[models.RateUSDCOP])
	assert.Equal(t, 1.25, values[models.RateEURUSD])
	assert.Equal(t, 2.0, values[models.RateGBPUSD])
}

func TestHTTPFetcherTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := NewHTTPFetcher(srv.URL, 100*time.Millisecond).Fetch(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPFetcherRejectsIncompletePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result":"success","base_code":"USD","rates":{"COP":4000}}`)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, time.Second).Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPFetcherOpensBreaker(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, time.Second)
	for i := 0; i < 5; i++ {
		_, err := f.Fetch(context.Background())
		assert.Error(t, err)
	}
	assert.Equal(t, 3, calls)
}
