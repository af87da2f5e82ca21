// Package guard keeps a consumer from issuing the same fetch twice while it
// is mounted.
package guard

import (
	"context"
	"sync"
)

// Guard marks keys that have been fetched. A marked key is skipped until it
// is released or the fetch that marked it fails.
type Guard struct {
	mu     sync.Mutex
	marked map[string]struct{}
}

func New() *Guard {
	return &Guard{marked: make(map[string]struct{})}
}

// Run calls fn unless key is already marked. ran reports whether fn was called.
func (g *Guard) Run(ctx context.Context, key string, fn func(context.Context) error) (ran bool, err error) {
	if !g.mark(key) {
		return false, nil
	}
	if err := fn(ctx); err != nil {
		g.Release(key)
		return true, err
	}
	return true, nil
}

func (g *Guard) mark(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.marked[key]; ok {
		return false
	}
	g.marked[key] = struct{}{}
	return true
}

// Release unmarks key so the next Run fetches again.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	delete(g.marked, key)
	g.mu.Unlock()
}

// ReleaseAll unmarks every key; used on teardown.
func (g *Guard) ReleaseAll() {
	g.mu.Lock()
	clear(g.marked)
	g.mu.Unlock()
}

func (g *Guard) Marked(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.marked[key]
	return ok
}
