package catalogue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Store holds the current snapshot. Runs capture one snapshot at start and
// keep it for their whole duration; reloads swap the pointer.
type Store struct {
	current  atomic.Pointer[Catalogue]
	onReload []func(*Catalogue)
	onFail   []func(error)
}

// NewStore creates a store holding c. A nil c is replaced by an empty
// catalogue.
func NewStore(c *Catalogue) *Store {
	s := &Store{}
	if c == nil {
		c = &Catalogue{}
		_ = c.index()
	}
	s.current.Store(c)
	return s
}

// Current returns the snapshot in use.
func (s *Store) Current() *Catalogue {
	return s.current.Load()
}

// OnReload registers a callback run after every successful Swap. Callbacks
// must be registered before reloads start.
func (s *Store) OnReload(fn func(*Catalogue)) {
	s.onReload = append(s.onReload, fn)
}

// OnReloadFailure registers a callback run when a reload or refresh fails.
func (s *Store) OnReloadFailure(fn func(error)) {
	s.onFail = append(s.onFail, fn)
}

func (s *Store) failed(err error) {
	for _, fn := range s.onFail {
		fn(err)
	}
}

// Swap replaces the snapshot.
func (s *Store) Swap(c *Catalogue) {
	s.current.Store(c)
	for _, fn := range s.onReload {
		fn(c)
	}
}

// ReloadFile replaces the snapshot with the contents of path. A broken file
// keeps the previous snapshot.
func (s *Store) ReloadFile(path string) error {
	c, err := Load(path)
	if err != nil {
		logging.Error("Catalogue", err, "Keeping previous catalogue, reload of %s failed", path)
		s.failed(err)
		return err
	}
	hosts, apis, heis := c.Stats()
	logging.Info("Catalogue", "Reloaded catalogue from %s: %d hosts, %d APIs, %d HEIs", path, hosts, apis, heis)
	s.Swap(c)
	return nil
}

// Refresh re-fetches src every interval until ctx is done. Failed fetches
// keep the previous snapshot.
func (s *Store) Refresh(ctx context.Context, src *RemoteSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c, err := src.Fetch(ctx)
			if err != nil {
				logging.Error("Catalogue", err, "Keeping previous catalogue, refresh failed")
				s.failed(err)
				continue
			}
			s.Swap(c)
		}
	}
}
