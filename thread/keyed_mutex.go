package thread

import (
	"sync"
)

type (
	// keyedMutex serializes appends per (threadKey, userId). Row locking
	// covers postgres, but sqlite has no FOR UPDATE, so the in-process
	// lock is what actually closes the read-modify-write race there.
	// Entries are reference counted and dropped when the last holder
	// releases, keeping the map bounded by in-flight keys rather than
	// every key ever seen.
	keyedMutex struct {
		mu    sync.Mutex
		locks map[Key]*lockEntry
	}

	lockEntry struct {
		mu   sync.Mutex
		refs int
	}
)

func (k *keyedMutex) Lock(key Key) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[Key]*lockEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// held reports how many keys currently have waiters or holders.
func (k *keyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
