package memory

import (
	"time"

	"kb-console/pkg/store"

	"github.com/patrickmn/go-cache"
)

// ConsoleRepository holds live consoles. Entries expire after ttl without a
// lookup; every Get pushes the expiry forward.
type ConsoleRepository struct {
	cache *cache.Cache
}

func NewConsoleRepository(ttl time.Duration, onEvict func(id string)) *ConsoleRepository {
	// purge expired entries every ttl/6, but not more often than once a minute
	cleanup := ttl / 6
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	c := cache.New(ttl, cleanup)
	if onEvict != nil {
		c.OnEvicted(func(id string, _ interface{}) { onEvict(id) })
	}
	return &ConsoleRepository{
		cache: c,
	}
}

func (r *ConsoleRepository) Save(console *store.Console) {
	r.cache.Set(console.ID, console, cache.DefaultExpiration)
}

func (r *ConsoleRepository) Get(consoleID string) (*store.Console, bool) {
	if x, found := r.cache.Get(consoleID); found {
		console := x.(*store.Console)
		r.cache.Set(consoleID, console, cache.DefaultExpiration)
		return console, true
	}
	return nil, false
}

// GetOrAdd stores console unless one with the same id is already live, and
// returns whichever is stored.
func (r *ConsoleRepository) GetOrAdd(console *store.Console) *store.Console {
	if err := r.cache.Add(console.ID, console, cache.DefaultExpiration); err != nil {
		if existing, ok := r.Get(console.ID); ok {
			return existing
		}
		r.Save(console)
	}
	return console
}

func (r *ConsoleRepository) Delete(consoleID string) {
	r.cache.Delete(consoleID)
}

func (r *ConsoleRepository) Count() int {
	return r.cache.ItemCount()
}
