package cache

import (
	"context"
	"sync"

	"github.com/erp/warehouse/internal/domain/shared"
)

// InMemoryKeyLocker serializes callers per key inside one process
type InMemoryKeyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch      chan struct{} // buffered(1): holding the token means holding the lock
	waiters int
}

// NewInMemoryKeyLocker creates a new InMemoryKeyLocker
func NewInMemoryKeyLocker() *InMemoryKeyLocker {
	return &InMemoryKeyLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done
func (l *InMemoryKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.done(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.done(key, kl)
		})
	}, nil
}

// done drops the entry once nobody holds or waits for it
func (l *InMemoryKeyLocker) done(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}

var _ shared.KeyLocker = (*InMemoryKeyLocker)(nil)
