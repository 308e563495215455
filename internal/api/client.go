package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"herostats/internal/config"
	"herostats/internal/constants"
	"herostats/internal/metrics"
)

// ErrNotFound is returned for HTTP 404, which the API uses for "no more data".
var ErrNotFound = errors.New("not found")

// APIError is a non-200 response from the game API.
type APIError struct {
	Endpoint   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s returned %d", e.Endpoint, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == fasthttp.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// IsTransient reports whether err is worth retrying later: transport
// failures, timeouts, 429 and 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == fasthttp.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, ErrNotFound)
}

type Client struct {
	baseURL     string
	apiKey      string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.APIBaseURL,
		apiKey:  cfg.APIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{
			Limit:     cfg.RequestsPerMinute,
			Remaining: cfg.RequestsPerMinute,
			Reset:     60,
			UpdatedAt: time.Now(),
		},
	}
}

// GetRateLimitInfo returns the budget last reported by the API headers.
func (c *Client) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *Client) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *Client) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	resp, err := doRequest[LeaderboardResponse](ctx, c, "leaderboard", constants.LeaderboardPath, q)
	if err != nil {
		return nil, err
	}
	return resp.Players, nil
}

func (c *Client) GetHeroLeaderboard(ctx context.Context, heroID, limit int) ([]LeaderboardEntry, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	path := fmt.Sprintf(constants.HeroLeaderboardPath, heroID)
	resp, err := doRequest[LeaderboardResponse](ctx, c, "hero_leaderboard", path, q)
	if err != nil {
		return nil, err
	}
	return resp.Players, nil
}

func (c *Client) GetPlayerMatches(ctx context.Context, username string, limit int, mode string, season int) (*PlayerMatchesResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if mode != "" {
		q.Set("mode", mode)
	}
	q.Set("season", strconv.Itoa(season))
	path := fmt.Sprintf(constants.PlayerMatchesPath, url.PathEscape(username))
	return doRequest[PlayerMatchesResponse](ctx, c, "player_matches", path, q)
}

func doRequest[T any](ctx context.Context, client *Client, endpoint, path string, query url.Values) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := client.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("x-api-key", client.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}
	if err := client.client.DoDeadline(req, resp, deadline); err != nil {
		metrics.APIRequests.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}

	client.updateRateLimit(resp)
	metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode())).Inc()

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode()}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return &result, nil
}
