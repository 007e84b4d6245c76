package catalogue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// maxCatalogueSize bounds how much of a remote snapshot is read.
const maxCatalogueSize = 64 << 20

// RemoteSource fetches a catalogue snapshot over HTTP with retries.
type RemoteSource struct {
	URL    string
	client *retryablehttp.Client
}

// NewRemoteSource creates a source for url. A nil httpClient uses the
// retryablehttp default.
func NewRemoteSource(url string, httpClient *http.Client) *RemoteSource {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.Logger = logging.Leveled{Subsystem: "Catalogue"}
	if httpClient != nil {
		c.HTTPClient = httpClient
	}
	return &RemoteSource{URL: url, client: c}
}

// Fetch downloads and parses the snapshot.
func (s *RemoteSource) Fetch(ctx context.Context) (*Catalogue, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalogue request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, text/yaml;q=0.9, */*;q=0.1")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalogue from %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch catalogue from %s: HTTP %d", s.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogueSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue body: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	hosts, apis, heis := c.Stats()
	logging.Info("Catalogue", "Fetched catalogue from %s: %d hosts, %d APIs, %d HEIs", s.URL, hosts, apis, heis)
	return c, nil
}
