package riot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
)

const (
	// Rate limits for dev key (using conservative values to be safe)
	defaultRequestsPerSecond = 15 // Actual: 20
	defaultRequestsPer2Min   = 90 // Actual: 100

	maxRetries        = 3
	defaultRetryAfter = 10 * time.Second
)

var (
	ErrNotFound  = errors.New("riot: not found")
	ErrForbidden = errors.New("riot: forbidden, check RIOT_API_KEY")
)

// Client is a rate-limited Riot API client
type Client struct {
	apiKey     string
	region     string
	baseURL    string // overrides regional and platform hosts when set
	httpClient *http.Client
	logger     *log.Logger

	// Rate limiting
	mu                sync.Mutex
	requestsPerSecond int
	requestsPer2Min   int
	shortWindow       []time.Time // Requests in last second
	longWindow        []time.Time // Requests in last 2 minutes
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL sends every request to url (useful for testing)
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimits overrides the per-second and per-2-minute request budgets
func WithRateLimits(perSecond, per2Min int) Option {
	return func(c *Client) {
		c.requestsPerSecond = perSecond
		c.requestsPer2Min = per2Min
	}
}

// WithLogger sets the client logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Riot API client for a routing region
func NewClient(apiKey, region string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("riot API key not set")
	}
	if !ValidRegion(region) {
		return nil, fmt.Errorf("unknown routing region %q", region)
	}

	c := &Client{
		apiKey: apiKey,
		region: region,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:            log.WithPrefix("[Riot]"),
		requestsPerSecond: defaultRequestsPerSecond,
		requestsPer2Min:   defaultRequestsPer2Min,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Region returns the routing region the client was created for
func (c *Client) Region() string {
	return c.region
}

func (c *Client) regionURL(path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return regionHost(c.region) + path
}

func (c *Client) platformURL(platform, path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return platformHost(platform) + path
}

// waitForRateLimit blocks until we can make another request
func (c *Client) waitForRateLimit(ctx context.Context) error {
	for {
		c.mu.Lock()
		now := time.Now()

		c.shortWindow = pruneBefore(c.shortWindow, now.Add(-1*time.Second))
		c.longWindow = pruneBefore(c.longWindow, now.Add(-2*time.Minute))

		var wait time.Duration
		switch {
		case len(c.shortWindow) >= c.requestsPerSecond:
			wait = c.shortWindow[0].Add(time.Second).Sub(now) + 100*time.Millisecond
		case len(c.longWindow) >= c.requestsPer2Min:
			wait = c.longWindow[0].Add(2*time.Minute).Sub(now) + 100*time.Millisecond
		default:
			c.shortWindow = append(c.shortWindow, now)
			c.longWindow = append(c.longWindow, now)
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		c.logger.Debug("rate limit reached", "wait", wait)
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

func pruneBefore(window []time.Time, cutoff time.Time) []time.Time {
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doRequest makes a rate-limited request, honouring Retry-After on 429
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	for attempt := 0; ; attempt++ {
		if err := c.waitForRateLimit(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			resp.Body.Close()
			wait := defaultRetryAfter
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				wait = time.Duration(secs) * time.Second
			}
			c.logger.Warn("429 rate limited", "wait", wait, "attempt", attempt+1)
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			continue
		}

		err = decodeResponse(resp, result)
		resp.Body.Close()
		return err
	}
}

func decodeResponse(resp *http.Response, result interface{}) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(result)
	case http.StatusForbidden, http.StatusUnauthorized:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
}

// GetAccountByRiotID fetches account info by Riot ID (gameName#tagLine)
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountResponse, error) {
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName), url.PathEscape(tagLine))

	var account AccountResponse
	if err := c.doRequest(ctx, c.regionURL(path), &account); err != nil {
		return nil, fmt.Errorf("get account %s#%s: %w", gameName, tagLine, err)
	}
	return &account, nil
}

// GetMatchHistory fetches ranked solo match IDs for a player, most recent first
func (c *Client) GetMatchHistory(ctx context.Context, puuid string, count int) ([]string, error) {
	path := fmt.Sprintf("/lol/match/v5/matches/by-puuid/%s/ids?queue=420&count=%d", puuid, count)

	var matchIDs []string
	if err := c.doRequest(ctx, c.regionURL(path), &matchIDs); err != nil {
		return nil, fmt.Errorf("get match history: %w", err)
	}
	return matchIDs, nil
}

// GetMatch fetches match details
func (c *Client) GetMatch(ctx context.Context, matchID string) (*MatchResponse, error) {
	path := fmt.Sprintf("/lol/match/v5/matches/%s", matchID)

	var match MatchResponse
	if err := c.doRequest(ctx, c.regionURL(path), &match); err != nil {
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return &match, nil
}

// GetTimeline fetches match timeline
func (c *Client) GetTimeline(ctx context.Context, matchID string) (*TimelineResponse, error) {
	path := fmt.Sprintf("/lol/match/v5/matches/%s/timeline", matchID)

	var timeline TimelineResponse
	if err := c.doRequest(ctx, c.regionURL(path), &timeline); err != nil {
		return nil, fmt.Errorf("get timeline %s: %w", matchID, err)
	}
	return &timeline, nil
}

// GetLeagueEntries fetches ranked entries for a player on a platform (NA1, EUW1, ...)
func (c *Client) GetLeagueEntries(ctx context.Context, platform, puuid string) ([]LeagueEntryResponse, error) {
	path := fmt.Sprintf("/lol/league/v4/entries/by-puuid/%s", puuid)

	var entries []LeagueEntryResponse
	if err := c.doRequest(ctx, c.platformURL(platform, path), &entries); err != nil {
		return nil, fmt.Errorf("get league entries: %w", err)
	}
	return entries, nil
}

// GetSoloTier returns the player's solo queue tier, or UnrankedTier
func (c *Client) GetSoloTier(ctx context.Context, platform, puuid string) (string, error) {
	entries, err := c.GetLeagueEntries(ctx, platform, puuid)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.QueueType == "RANKED_SOLO_5x5" {
			return e.Tier, nil
		}
	}
	return UnrankedTier, nil
}

// ValidateKey checks the configured key against the status API of the
// region's home platform. It returns (false, nil) when the key is rejected and
// an error when validity could not be determined.
func (c *Client) ValidateKey(ctx context.Context) (bool, error) {
	var status json.RawMessage
	err := c.doRequest(ctx, c.platformURL(regionHomePlatforms[c.region], "/lol/status/v4/platform-data"), &status)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, fmt.Errorf("validate key: %w", err)
	}
}
