// Package directory resolves user ids to profiles through a TTL cache.
//
// Lookup is synchronous and only consults the cache. EnsureLoaded fetches a
// missing profile in the background; concurrent requests for the same id
// share one fetch.
package directory

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/fundflow/internal/cache"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/storage"
)

// Loader fetches a user from the backing store.
type Loader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Directory is a two-tier user lookup.
type Directory struct {
	loader Loader
	cache  *cache.TTL[string, models.User]
	group  singleflight.Group
}

// New creates a directory over loader using c for storage.
func New(loader Loader, c *cache.TTL[string, models.User]) *Directory {
	return &Directory{loader: loader, cache: c}
}

// Lookup returns the cached user, if any. It never blocks on I/O.
func (d *Directory) Lookup(id string) (models.User, bool) {
	return d.cache.Get(id)
}

// Placeholder returns a display name for id: the cached name, or a short
// stand-in while the profile loads.
func (d *Directory) Placeholder(id string) string {
	if u, ok := d.Lookup(id); ok && u.DisplayName != "" {
		return u.DisplayName
	}
	short := id
	if len(short) > 6 {
		short = short[:6]
	}
	return "Member " + short
}

// Put primes the cache, e.g. after sign-in or a profile edit.
func (d *Directory) Put(user models.User) {
	d.cache.Put(user.ID, user)
}

// Invalidate drops id from the cache.
func (d *Directory) Invalidate(id string) {
	d.cache.Delete(id)
}

// EnsureLoaded fetches id into the cache unless it is already fresh. The
// returned channel receives exactly one value, nil on success, and is then
// closed. Cancelling ctx stops the wait but not a fetch shared with other
// callers.
func (d *Directory) EnsureLoaded(ctx context.Context, id string) <-chan error {
	done := make(chan error, 1)
	if !d.cache.IsExpired(id) {
		done <- nil
		close(done)
		return done
	}

	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(id, func() (any, error) {
		user, err := d.loader.GetUser(shared, id)
		if err != nil {
			return nil, err
		}
		d.cache.Put(id, *user)
		return user, nil
	})

	go func() {
		defer close(done)
		select {
		case res := <-ch:
			done <- res.Err
		case <-ctx.Done():
			done <- ctx.Err()
		}
	}()
	return done
}

// Get returns the user for id, loading it if necessary.
func (d *Directory) Get(ctx context.Context, id string) (models.User, error) {
	if u, ok := d.Lookup(id); ok {
		return u, nil
	}
	if err := <-d.EnsureLoaded(ctx, id); err != nil {
		return models.User{}, err
	}
	if u, ok := d.Lookup(id); ok {
		return u, nil
	}
	return models.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
}

// Roster resolves ids in order, loading misses concurrently. Users that do
// not exist are returned with a placeholder display name.
func (d *Directory) Roster(ctx context.Context, ids []string) ([]models.User, error) {
	pending := make(map[string]<-chan error)
	for _, id := range ids {
		if _, ok := pending[id]; ok {
			continue
		}
		if _, ok := d.Lookup(id); !ok {
			pending[id] = d.EnsureLoaded(ctx, id)
		}
	}
	for id, ch := range pending {
		if err := <-ch; err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to load user %s: %w", id, err)
		}
	}

	roster := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.Lookup(id); ok {
			roster = append(roster, u)
			continue
		}
		roster = append(roster, models.User{ID: id, DisplayName: d.Placeholder(id)})
	}
	return roster, nil
}
