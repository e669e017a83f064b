package roster

import (
	"context"
	"fmt"
	"sync"
)

type entityKind string

const (
	kindProfile     entityKind = "profile"
	kindApplication entityKind = "application"
)

type entityKey struct {
	kind entityKind
	id   int64
}

func (k entityKey) String() string {
	return fmt.Sprintf("%s:%d", k.kind, k.id)
}

func profileKey(id int64) entityKey     { return entityKey{kind: kindProfile, id: id} }
func applicationKey(id int64) entityKey { return entityKey{kind: kindApplication, id: id} }

// keyedMutex serializes work per entity. Waiters on the same key are admitted in
// arrival order; different keys never block each other.
type keyedMutex struct {
	mu    sync.Mutex
	slots map[entityKey]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{slots: make(map[entityKey]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned func releases it.
func (k *keyedMutex) Lock(ctx context.Context, key entityKey) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, s)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key entityKey, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// held returns how many callers hold or wait for key.
func (k *keyedMutex) held(key entityKey) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if s, ok := k.slots[key]; ok {
		return s.refs
	}
	return 0
}
