// Package riot talks to the Riot Games API: Riot-ID to PUUID resolution and
// live-game presence via the spectator endpoint.
package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"lolwatch/internal/metrics"
	logx "lolwatch/pkg/logx"
)

// ErrNotFound maps a 404 from the API: unknown account, or (for the spectator
// endpoint) no active game.
var ErrNotFound = errors.New("riot: not found")

type Config struct {
	APIKey string
	// Platform routes spectator lookups ("jp1", "euw1", "na1", ...).
	Platform string
	// Region routes account lookups ("asia", "europe", "americas").
	Region         string
	RequestTimeout time.Duration
	RetryMax       int
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 2
	}
	return c
}

// Client is a minimal Riot API client. PUUID lookups are cached for the
// process lifetime; Riot IDs are stable enough that staleness is acceptable.
type Client struct {
	http *retryablehttp.Client
	log  logx.Logger

	mu       sync.RWMutex
	cfg      Config
	puuids   map[string]string // riot id -> puuid
	accBase  string
	specBase string
}

func NewClient(cfg Config, log logx.Logger) *Client {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.HTTPClient.Timeout = cfg.RequestTimeout
	hc.Logger = nil // suppress retryablehttp's default logging
	// 404 is a result (no active game), never retried
	hc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	c := &Client{http: hc, log: log, puuids: map[string]string{}}
	c.applyLocked(cfg)
	return c
}

// Apply updates routing and key; cached PUUIDs survive a key rotation but are
// dropped when the region changes.
func (c *Client) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.Region != c.cfg.Region {
		c.puuids = map[string]string{}
	}
	c.applyLocked(cfg)
	c.http.RetryMax = cfg.RetryMax
	c.http.HTTPClient.Timeout = cfg.RequestTimeout
}

func (c *Client) applyLocked(cfg Config) {
	c.cfg = cfg
	c.accBase = fmt.Sprintf("https://%s.api.riotgames.com", strings.TrimSpace(cfg.Region))
	c.specBase = fmt.Sprintf("https://%s.api.riotgames.com", strings.TrimSpace(cfg.Platform))
}

// SetBaseURLs overrides endpoint hosts; used by tests.
func (c *Client) SetBaseURLs(account, spectator string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accBase = strings.TrimRight(account, "/")
	c.specBase = strings.TrimRight(spectator, "/")
}

type account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// ActiveGame is the subset of the spectator payload the tracker needs.
type ActiveGame struct {
	GameID        int64  `json:"gameId"`
	GameMode      string `json:"gameMode"`
	GameStartTime int64  `json:"gameStartTime"` // unix milli
}

// ResolvePUUID maps a Riot ID ("Name#TAG") to a PUUID, consulting the cache
// first. Returns ErrNotFound for unknown accounts.
func (c *Client) ResolvePUUID(ctx context.Context, riotID string) (string, error) {
	name, tag, err := SplitRiotID(riotID)
	if err != nil {
		return "", err
	}

	c.mu.RLock()
	if p, ok := c.puuids[riotID]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	base := c.accBase
	c.mu.RUnlock()

	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		base, url.PathEscape(name), url.PathEscape(tag))

	var acc account
	if err := c.getJSON(ctx, "account", u, &acc); err != nil {
		return "", err
	}
	if acc.PUUID == "" {
		return "", fmt.Errorf("riot: empty puuid for %q", riotID)
	}

	c.mu.Lock()
	c.puuids[riotID] = acc.PUUID
	c.mu.Unlock()
	return acc.PUUID, nil
}

// ActiveGame returns the user's current game, or (nil, nil) when the player
// is not in game.
func (c *Client) ActiveGame(ctx context.Context, puuid string) (*ActiveGame, error) {
	c.mu.RLock()
	base := c.specBase
	c.mu.RUnlock()

	u := fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s",
		base, url.PathEscape(puuid))

	var game ActiveGame
	err := c.getJSON(ctx, "spectator", u, &game)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, u string, out any) error {
	c.mu.RLock()
	key := c.cfg.APIKey
	c.mu.RUnlock()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Riot-Token", key)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RiotRequests.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	defer resp.Body.Close()
	metrics.RiotRequests.WithLabelValues(endpoint, metrics.StatusBucket(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("riot: %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SplitRiotID splits "Name#TAG" into its parts.
func SplitRiotID(riotID string) (name, tag string, err error) {
	i := strings.LastIndex(riotID, "#")
	if i <= 0 || i == len(riotID)-1 {
		return "", "", fmt.Errorf("invalid riot id %q (want Name#TAG)", riotID)
	}
	name = strings.TrimSpace(riotID[:i])
	tag = strings.TrimSpace(riotID[i+1:])
	if name == "" || tag == "" {
		return "", "", fmt.Errorf("invalid riot id %q (want Name#TAG)", riotID)
	}
	return name, tag, nil
}
