// Package mapclient talks to the FindMe REST API: markers, statistics,
// person details and the auxiliary location lookups.
package mapclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"findme/map-core/internal/loading"
	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/metrics"
)

const (
	EndpointMarkers        = "markers"
	EndpointStatistics     = "statistics"
	EndpointPerson         = "person"
	EndpointSearchLocation = "search_location"
	EndpointNearby         = "nearby"

	maxBodyBytes = 8 << 20
)

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

type Client struct {
	log     zerolog.Logger
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	loading *loading.Indicator
	metrics *metrics.Metrics
}

func New(log zerolog.Logger, opts Options, ind *loading.Indicator, m *metrics.Metrics) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http(s), got %q", opts.BaseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		log:     log,
		base:    base,
		http:    hc,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, burst),
		loading: ind,
		metrics: m,
	}, nil
}

// MarkersResult is the outcome of one markers fetch.
type MarkersResult struct {
	Markers []mapdata.MarkerRecord `json:"markers"`
	Total   int                    `json:"total"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) env() envelope { return e }

type enveloped interface {
	env() envelope
}

// markersResponse keeps records raw so one malformed entry does not fail the
// whole batch.
type markersResponse struct {
	envelope
	Markers []json.RawMessage `json:"markers"`
	Total   int               `json:"total"`
}

type statisticsResponse struct {
	envelope
	Statistics mapdata.Statistics `json:"statistics"`
}

type personResponse struct {
	envelope
	Person mapdata.PersonDetail `json:"person"`
}

type locationResponse struct {
	envelope
	Location mapdata.GeocodedLocation `json:"location"`
}

type nearbyResponse struct {
	envelope
	Results []mapdata.NearbyCase `json:"results"`
	Count   int                  `json:"count"`
}

// MarkerQuery serializes filters the way the markers endpoint expects them.
func MarkerQuery(f mapdata.FilterState) url.Values {
	q := url.Values{}
	status := f.Status
	if status == "" {
		status = mapdata.StatusAll
	}
	q.Set("status", string(status))
	q.Set("days", f.Days.String())
	q.Set("q", strings.TrimSpace(f.Search))
	q.Set("include_sightings", strconv.FormatBool(f.ShowSightings))
	return q
}

// FetchMarkers issues the markers query for the given filters.
func (c *Client) FetchMarkers(ctx context.Context, f mapdata.FilterState) (MarkersResult, error) {
	var resp markersResponse
	if err := c.do(ctx, EndpointMarkers, http.MethodGet, "/api/maps/markers", MarkerQuery(f), nil, &resp); err != nil {
		return MarkersResult{}, err
	}
	records := make([]mapdata.MarkerRecord, 0, len(resp.Markers))
	for i, raw := range resp.Markers {
		rec, err := mapdata.DecodeMarker(raw)
		if err != nil {
			c.log.Warn().Err(err).Int("index", i).Str("kind", string(rec.Kind)).Msg("undecodable marker record")
		}
		records = append(records, rec)
	}
	total := resp.Total
	if total == 0 && len(records) > 0 {
		total = len(records)
	}
	return MarkersResult{Markers: records, Total: total}, nil
}

// FetchStatistics loads the aggregate counts. It ignores marker filters.
func (c *Client) FetchStatistics(ctx context.Context) (mapdata.Statistics, error) {
	var resp statisticsResponse
	if err := c.do(ctx, EndpointStatistics, http.MethodGet, "/api/maps/statistics", nil, nil, &resp); err != nil {
		return mapdata.Statistics{}, err
	}
	return resp.Statistics, nil
}

// FetchPersonDetail loads the full record of one missing person.
func (c *Client) FetchPersonDetail(ctx context.Context, id int64) (mapdata.PersonDetail, error) {
	var resp personResponse
	path := "/api/maps/person/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, EndpointPerson, http.MethodGet, path, nil, nil, &resp); err != nil {
		return mapdata.PersonDetail{}, err
	}
	return resp.Person, nil
}

// SearchLocation geocodes a free-text place name.
func (c *Client) SearchLocation(ctx context.Context, query string) (mapdata.GeocodedLocation, error) {
	var resp locationResponse
	body := map[string]string{"query": strings.TrimSpace(query)}
	if err := c.do(ctx, EndpointSearchLocation, http.MethodPost, "/api/maps/search-location", nil, body, &resp); err != nil {
		return mapdata.GeocodedLocation{}, err
	}
	return resp.Location, nil
}

// Nearby lists missing persons within radiusKm of a point, nearest first.
func (c *Client) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]mapdata.NearbyCase, error) {
	var resp nearbyResponse
	body := map[string]float64{"lat": lat, "lng": lng, "radius": radiusKm}
	if err := c.do(ctx, EndpointNearby, http.MethodPost, "/api/maps/nearby", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body any, out enveloped) (err error) {
	done := c.loading.Begin()
	defer done()

	start := time.Now()
	defer func() {
		outcome := "ok"
		var apiErr *Error
		if errors.As(err, &apiErr) {
			outcome = apiErr.Kind.String()
		}
		c.metrics.ObserveAPIRequest(endpoint, outcome, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}

	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Endpoint: endpoint, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Str("request_id", reqID).Msg("api request failed")
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Status: res.StatusCode, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		c.log.Error().
			Str("endpoint", endpoint).
			Str("request_id", reqID).
			Int("status", res.StatusCode).
			Str("server_error", env.Error).
			Msg("api request returned error status")
		return &Error{Kind: KindStatus, Endpoint: endpoint, Status: res.StatusCode, Message: firstNonEmpty(env.Message, env.Error)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindDecode, Endpoint: endpoint, Status: res.StatusCode, Err: err}
	}
	if env := out.env(); !env.Success {
		c.log.Warn().
			Str("endpoint", endpoint).
			Str("request_id", reqID).
			Str("server_error", env.Error).
			Msg("api reported failure")
		return &Error{Kind: KindApplication, Endpoint: endpoint, Status: res.StatusCode, Message: firstNonEmpty(env.Error, env.Message)}
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Str("request_id", reqID).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("api request ok")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
