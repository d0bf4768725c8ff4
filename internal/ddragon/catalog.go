package ddragon

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

const defaultBaseURL = "https://ddragon.leagueoflegends.com"

// Item is the subset of item.json the miners use.
type Item struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	Into []string `json:"into"`
	From []string `json:"from"`
	Gold struct {
		Total int `json:"total"`
	} `json:"gold"`
}

// HasTag reports whether the item carries tag.
func (i Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Champion is the subset of champion.json used for naming and archetypes.
type Champion struct {
	ID   string   `json:"id"`  // "MonkeyKing", matches championName in match-v5
	Key  string   `json:"key"` // numeric id as a string
	Name string   `json:"name"`
	Tags []string `json:"tags"` // Fighter, Tank, Mage, Assassin, Marksman, Support
}

// Catalog is the reference data of one game version.
type Catalog struct {
	Version   string
	items     map[int]Item
	champions map[int]Champion
	byName    map[string]Champion
}

// NewCatalog builds a catalog from already decoded data.
func NewCatalog(version string, items map[int]Item, champions []Champion) *Catalog {
	c := &Catalog{
		Version:   version,
		items:     items,
		champions: make(map[int]Champion, len(champions)),
		byName:    make(map[string]Champion, len(champions)),
	}
	for _, champ := range champions {
		if id, err := strconv.Atoi(champ.Key); err == nil {
			c.champions[id] = champ
		}
		c.byName[strings.ToLower(champ.ID)] = champ
	}
	return c
}

// Item returns the item with the given id.
func (c *Catalog) Item(id int) (Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

// IsBoots reports whether the item carries the Boots tag.
func (c *Catalog) IsBoots(id int) bool {
	item, ok := c.items[id]
	return ok && item.HasTag("Boots")
}

// HasUpgrade reports whether the item builds into anything.
// Unknown items are treated as finished.
func (c *Catalog) HasUpgrade(id int) bool {
	item, ok := c.items[id]
	return ok && len(item.Into) > 0
}

// ChampionName returns the champion id string for a numeric champion id.
func (c *Catalog) ChampionName(id int) string {
	if champ, ok := c.champions[id]; ok {
		return champ.ID
	}
	return fmt.Sprintf("Champion %d", id)
}

// ChampionClass returns the primary archetype tag of a champion, "" if unknown.
func (c *Catalog) ChampionClass(name string) string {
	champ, ok := c.byName[strings.ToLower(name)]
	if !ok || len(champ.Tags) == 0 {
		return ""
	}
	return champ.Tags[0]
}

// Client loads catalogs from Data Dragon and caches them per version.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger

	mu       sync.RWMutex
	catalogs map[string]*Catalog
	versions []string

	loads singleflight.Group
}

// NewClient creates a Data Dragon client. An empty baseURL uses the public CDN.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.WithPrefix("[DDragon]"),
		catalogs:   make(map[string]*Catalog),
	}
}

func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Versions returns the published versions, newest first.
func (c *Client) Versions(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	versions := c.versions
	c.mu.RUnlock()
	if len(versions) > 0 {
		return versions, nil
	}

	if err := c.get(ctx, c.baseURL+"/api/versions.json", &versions); err != nil {
		return nil, fmt.Errorf("failed to fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("no versions available")
	}

	c.mu.Lock()
	c.versions = versions
	c.mu.Unlock()
	return versions, nil
}

// VersionForPatch returns the newest version of a major.minor patch,
// falling back to the latest version (with a warning) when the patch is
// unknown.
func (c *Client) VersionForPatch(ctx context.Context, patch string) (string, error) {
	versions, err := c.Versions(ctx)
	if err != nil {
		return "", err
	}
	for _, v := range versions {
		if strings.HasPrefix(v, patch+".") {
			return v, nil
		}
	}
	c.logger.Warn("unknown patch, using latest catalog", "patch", patch, "version", versions[0])
	return versions[0], nil
}

// Catalog loads (or returns the cached) catalog of a version.
// An empty version means the latest one.
func (c *Client) Catalog(ctx context.Context, version string) (*Catalog, error) {
	if version == "" {
		versions, err := c.Versions(ctx)
		if err != nil {
			return nil, err
		}
		version = versions[0]
	}

	c.mu.RLock()
	cached, ok := c.catalogs[version]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := c.loads.Do(version, func() (interface{}, error) {
		c.mu.RLock()
		cached, ok := c.catalogs[version]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		return c.load(ctx, version)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// load downloads items and champions of a version and caches the catalog.
func (c *Client) load(ctx context.Context, version string) (*Catalog, error) {
	var itemData struct {
		Data map[string]Item `json:"data"`
	}
	itemURL := fmt.Sprintf("%s/cdn/%s/data/en_US/item.json", c.baseURL, version)
	if err := c.get(ctx, itemURL, &itemData); err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	var champData struct {
		Data map[string]Champion `json:"data"`
	}
	champURL := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", c.baseURL, version)
	if err := c.get(ctx, champURL, &champData); err != nil {
		return nil, fmt.Errorf("failed to fetch champions: %w", err)
	}

	items := make(map[int]Item, len(itemData.Data))
	for idStr, item := range itemData.Data {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		items[id] = item
	}
	champions := make([]Champion, 0, len(champData.Data))
	for _, champ := range champData.Data {
		champions = append(champions, champ)
	}

	catalog := NewCatalog(version, items, champions)
	c.logger.Info("catalog loaded", "version", version, "items", len(items), "champions", len(champions))

	c.mu.Lock()
	c.catalogs[version] = catalog
	c.mu.Unlock()
	return catalog, nil
}

// ForPatch loads the catalog matching a major.minor patch.
func (c *Client) ForPatch(ctx context.Context, patch string) (*Catalog, error) {
	version, err := c.VersionForPatch(ctx, patch)
	if err != nil {
		return nil, err
	}
	return c.Catalog(ctx, version)
}
