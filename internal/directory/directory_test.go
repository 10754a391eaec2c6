package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmynk/fundflow/internal/cache"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/storage"
)

type fakeLoader struct {
	users   map[string]models.User
	calls   atomic.Int32
	release chan struct{}
	fail    error
}

func (f *fakeLoader) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.fail != nil {
		return nil, f.fail
	}
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return &u, nil
}

func newDirectory(loader Loader) *Directory {
	return New(loader, cache.New[string, models.User](time.Minute, nil))
}

func TestLookupIsCacheOnly(t *testing.T) {
	loader := &fakeLoader{users: map[string]models.User{"u1": {ID: "u1", DisplayName: "An"}}}
	d := newDirectory(loader)

	if _, ok := d.Lookup("u1"); ok {
		t.Error("Lookup should miss before loading")
	}
	if loader.calls.Load() != 0 {
		t.Error("Lookup must not call the loader")
	}
	if got := d.Placeholder("u1"); got != "Member u1" {
		t.Errorf("Placeholder = %q", got)
	}

	if err := <-d.EnsureLoaded(context.Background(), "u1"); err != nil {
		t.Fatalf("EnsureLoaded error = %v", err)
	}
	u, ok := d.Lookup("u1")
	if !ok || u.DisplayName != "An" {
		t.Errorf("Lookup after load = %+v, %v", u, ok)
	}
	if got := d.Placeholder("u1"); got != "An" {
		t.Errorf("Placeholder after load = %q", got)
	}

	if err := <-d.EnsureLoaded(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if loader.calls.Load() != 1 {
		t.Errorf("fresh entry should not be refetched, calls = %d", loader.calls.Load())
	}
}

func TestEnsureLoaded_SharesInFlightFetch(t *testing.T) {
	loader := &fakeLoader{
		users:   map[string]models.User{"u1": {ID: "u1", DisplayName: "An"}},
		release: make(chan struct{}),
	}
	d := newDirectory(loader)

	var chans []<-chan error
	for i := 0; i < 5; i++ {
		chans = append(chans, d.EnsureLoaded(context.Background(), "u1"))
	}
	close(loader.release)

	for _, ch := range chans {
		if err := <-ch; err != nil {
			t.Fatalf("EnsureLoaded error = %v", err)
		}
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
}

func TestEnsureLoaded_ContextCancelled(t *testing.T) {
	loader := &fakeLoader{release: make(chan struct{})}
	d := newDirectory(loader)

	ctx, cancel := context.WithCancel(context.Background())
	ch := d.EnsureLoaded(ctx, "u1")
	cancel()
	if err := <-ch; !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	close(loader.release)
}

func TestGet(t *testing.T) {
	loader := &fakeLoader{users: map[string]models.User{"u1": {ID: "u1", DisplayName: "An"}}}
	d := newDirectory(loader)

	u, err := d.Get(context.Background(), "u1")
	if err != nil || u.DisplayName != "An" {
		t.Errorf("Get = %+v, %v", u, err)
	}
	if _, err := d.Get(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRoster(t *testing.T) {
	loader := &fakeLoader{users: map[string]models.User{
		"u1": {ID: "u1", DisplayName: "An"},
		"u2": {ID: "u2", DisplayName: "Bình"},
	}}
	d := newDirectory(loader)
	d.Put(models.User{ID: "u3", DisplayName: "Chi"})

	roster, err := d.Roster(context.Background(), []string{"u1", "u2", "u3", "ghost-user", "u1"})
	if err != nil {
		t.Fatalf("Roster error = %v", err)
	}
	names := make([]string, len(roster))
	for i, u := range roster {
		names[i] = u.DisplayName
	}
	want := []string{"An", "Bình", "Chi", "Member ghost-", "An"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("roster[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRoster_PropagatesStoreFailure(t *testing.T) {
	d := newDirectory(&fakeLoader{fail: errors.New("connection refused")})
	if _, err := d.Roster(context.Background(), []string{"u1"}); err == nil {
		t.Error("Expected store failure to surface")
	}
}

func TestConcurrentLookups(t *testing.T) {
	loader := &fakeLoader{users: map[string]models.User{"u1": {ID: "u1"}}}
	d := newDirectory(loader)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-d.EnsureLoaded(context.Background(), "u1")
			d.Lookup("u1")
		}()
	}
	wg.Wait()
}
