package oauth

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader makes Script.Load idempotent. Concurrent callers share a single
// in-flight load; a failed load is not remembered, so the next call retries.
type Loader struct {
	name   string
	script Script

	group singleflight.Group

	mu     sync.Mutex
	loaded bool
}

func NewLoader(name string, script Script) *Loader {
	return &Loader{
		name:   name,
		script: script,
	}
}

func (l *Loader) Ensure(ctx context.Context) error {
	if l.Loaded() {
		return nil
	}

	_, err, _ := l.group.Do(l.name, func() (any, error) {
		if l.Loaded() {
			return nil, nil
		}
		if err := l.script.Load(ctx); err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded = true
		l.mu.Unlock()
		return nil, nil
	})
	return err
}

func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Reset forgets a previous load so the SDK is injected again on next use.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.loaded = false
	l.mu.Unlock()
	l.group.Forget(l.name)
}
