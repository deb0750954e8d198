package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"gestioncalc/internal/models"
)

// Fetcher pulls live rates from an upstream source.
type Fetcher interface {
	Fetch(ctx context.Context) (map[models.RateKind]float64, error)
	Name() string
}

// latestResponse is the payload of a USD-based "latest rates" endpoint
// (open.er-api.com and compatible services).
type latestResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// HTTPFetcher reads USD-based rates from a JSON endpoint behind a circuit
// breaker.
type HTTPFetcher struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPFetcher builds a fetcher whose requests are bounded by timeout.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	st := gobreaker.Settings{Name: "rates-upstream"}
	st.Interval = 60 * time.Second
	st.Timeout = 5 * time.Minute
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}

	return &HTTPFetcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				IdleConnTimeout:       timeout,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

func (f *HTTPFetcher) Name() string {
	return "http:" + f.url
}

// Fetch returns USD_COP, EUR_USD and GBP_USD derived from the upstream
// USD-based table.
func (f *HTTPFetcher) Fetch(ctx context.Context) (map[models.RateKind]float64, error) {
	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.(map[models.RateKind]float64), nil
}

func (f *HTTPFetcher) fetch(ctx context.Context) (map[models.RateKind]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return nil, fmt.Errorf("upstream returned result %q", body.Result)
	}
	if body.BaseCode != "" && body.BaseCode != "USD" {
		return nil, fmt.Errorf("upstream base currency %q is not USD", body.BaseCode)
	}

	cop, eur, gbp := body.Rates["COP"], body.Rates["EUR"], body.Rates["GBP"]
	if cop <= 0 || eur <= 0 || gbp <= 0 {
		return nil, errors.New("upstream response is missing COP, EUR or GBP")
	}

	return map[models.RateKind]float64{
		models.RateUSDCOP: cop,
		models.RateEURUSD: 1 / eur,
		models.RateGBPUSD: 1 / gbp,
	}, nil
}
