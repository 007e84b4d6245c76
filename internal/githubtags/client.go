// Package githubtags lists the published versions of an EWP API, taken from
// the tags of its ewp-specs-api-<name> GitHub repository.
package githubtags

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Source returns the released versions of an API, in ascending order. An
// empty result means the versions are unknown.
type Source interface {
	Tags(ctx context.Context, api string) ([]semver.Version, error)
}

// Options configure a Client.
type Options struct {
	// URLFormat receives the API name, e.g. DefaultURLFormat.
	URLFormat string
	Token     string
	CacheTTL  time.Duration
	// HTTPClient is used for the requests; nil means a default client.
	HTTPClient *http.Client
}

// DefaultURLFormat is the GitHub API tags listing of an EWP specification.
const DefaultURLFormat = "https://api.github.com/repos/erasmus-without-paper/ewp-specs-api-%s/tags"

// Client fetches tags over HTTP and caches them per API.
type Client struct {
	format string
	token  string
	http   *retryablehttp.Client
	cache  *cache.Cache
}

// New creates a client.
func New(opts Options) *Client {
	if opts.URLFormat == "" {
		opts.URLFormat = DefaultURLFormat
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = logging.Leveled{Subsystem: "GitHubTags"}
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	return &Client{
		format: opts.URLFormat,
		token:  opts.Token,
		http:   rc,
		cache:  cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// Tags implements Source. Tags that are not versions are ignored.
func (c *Client) Tags(ctx context.Context, api string) ([]semver.Version, error) {
	if cached, ok := c.cache.Get(api); ok {
		return cached.([]semver.Version), nil
	}

	url := fmt.Sprintf(c.format, api)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch github tags from url %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot fetch github tags from url %s: HTTP %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("cannot fetch github tags from url %s: %w", url, err)
	}

	versions, err := ParseTags(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	c.cache.SetDefault(api, versions)
	logging.Debug("GitHubTags", "Fetched %d versions of %s", len(versions), api)
	return versions, nil
}

// ParseTags reads a GitHub tags listing.
func ParseTags(data []byte) ([]semver.Version, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsArray() {
		return nil, fmt.Errorf("GitHub api returned invalid JSON")
	}
	var out []semver.Version
	for _, name := range gjson.GetBytes(data, "#.name").Array() {
		v, err := semver.Parse(name.String())
		if err != nil {
			logging.Debug("GitHubTags", "Ignoring tag %q: %v", name.String(), err)
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// Newer returns the highest released version above current, ignoring
// release candidates.
func Newer(tags []semver.Version, current semver.Version) (semver.Version, bool) {
	var best semver.Version
	found := false
	for _, t := range tags {
		if t.IsReleaseCandidate() || !current.Less(t) {
			continue
		}
		if !found || best.Less(t) {
			best, found = t, true
		}
	}
	return best, found
}

// Contains reports whether v is one of tags.
func Contains(tags []semver.Version, v semver.Version) bool {
	for _, t := range tags {
		if t.Equal(v) {
			return true
		}
	}
	return false
}

// Static is a fixed Source, used when tag lookup is disabled or in tests.
type Static map[string][]semver.Version

func (s Static) Tags(_ context.Context, api string) ([]semver.Version, error) {
	return s[api], nil
}
