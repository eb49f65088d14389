// Package opencage implements domain.Geocoder on the OpenCage forward
// geocoding API.
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"golang.org/x/time/rate"
)

const (
	provider       = "opencage"
	defaultBaseURL = "https://api.opencagedata.com/geocode/v1/json"
	resultLimit    = 5
)

// Client implements domain.Geocoder using the OpenCage API.
type Client struct {
	key        string
	country    string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenCage client. rps caps outgoing requests per second;
// country, when set, restricts results to that ISO 3166-1 alpha-2 code.
func NewClient(key, country string, timeout time.Duration, rps float64, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		key:     key,
		country: country,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode returns the candidates OpenCage reports for query, best first.
func (c *Client) ForwardGeocode(ctx context.Context, query string) ([]domain.GeocodingResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{
		"q":              {query},
		"key":            {c.key},
		"limit":          {strconv.Itoa(resultLimit)},
		"no_annotations": {"1"},
	}
	if c.country != "" {
		params.Set("countrycode", c.country)
	}

	start := time.Now()
	results, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		c.logger.Warn("opencage request failed", "query", query, "error", err)
		return nil, err
	case len(results) == 0:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "success").Inc()
	}
	return results, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opencage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("opencage API error: status %d: %s", resp.StatusCode, body)
	}

	var ocResp response
	if err := json.NewDecoder(resp.Body).Decode(&ocResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if ocResp.Status.Code != 0 && ocResp.Status.Code != http.StatusOK {
		return nil, fmt.Errorf("opencage API error: status %d: %s", ocResp.Status.Code, ocResp.Status.Message)
	}

	results := make([]domain.GeocodingResult, 0, len(ocResp.Results))
	for _, r := range ocResp.Results {
		results = append(results, domain.GeocodingResult{
			Lat:              r.Geometry.Lat,
			Lon:              r.Geometry.Lng,
			FormattedAddress: r.Formatted,
			Confidence:       float64(r.Confidence) / 10,
		})
	}
	return results, nil
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
	Status  status   `json:"status"`
}

type result struct {
	Geometry   geometry `json:"geometry"`
	Formatted  string   `json:"formatted"`
	Confidence int      `json:"confidence"` // 0-10
}

type geometry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
