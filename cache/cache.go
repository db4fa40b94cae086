// Package cache memoizes parsed route trees and their usage per token.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/romshark/routelint/routepattern"
	"github.com/romshark/routelint/usage"
)

var ErrNilResult = errors.New("build returned no tree")

// Key identifies a host token: the literal or comment a pattern was found in.
type Key struct {
	Document string
	Version  int32

	// Offset is the byte offset of the token in the document.
	Offset int
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d:%d", k.Document, k.Version, k.Offset)
}

// BuildFunc produces the tree and usage for a token.
type BuildFunc func(ctx context.Context) (*routepattern.Tree, usage.Context, error)

type cell struct {
	tree  *routepattern.Tree
	usage usage.Context
}

// Cache is safe for concurrent use. The zero value is not usable,
// use New.
type Cache struct {
	log     *slog.Logger
	cells   sync.Map // Key -> *cell
	latest  sync.Map // document -> int32
	group   singleflight.Group
	builds  atomic.Int64
	evicted atomic.Int64
}

// New creates an empty cache. log may be nil.
func New(log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{log: log}
}

// GetOrBuild returns the cached tree for key or runs build.
// Concurrent callers with the same key share a single build.
// Failed builds are not cached.
// Requests for a version older than the newest seen for the document
// are built but never cached.
func (c *Cache) GetOrBuild(
	ctx context.Context, key Key, build BuildFunc,
) (*routepattern.Tree, usage.Context, error) {
	if v, ok := c.cells.Load(key); ok {
		e := v.(*cell)
		return e.tree, e.usage, nil
	}
	current := c.observe(key)

	ch := c.group.DoChan(key.String(), func() (any, error) {
		if v, ok := c.cells.Load(key); ok {
			return v, nil
		}
		c.builds.Add(1)
		tree, u, err := build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if tree == nil {
			return nil, ErrNilResult
		}
		e := &cell{tree: tree, usage: u}
		if current {
			c.store(key, e)
		}
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, usage.Context{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, usage.Context{}, fmt.Errorf("building %s: %w", key, r.Err)
		}
		e := r.Val.(*cell)
		return e.tree, e.usage, nil
	}
}

// Get returns a cached tree without building.
func (c *Cache) Get(key Key) (*routepattern.Tree, usage.Context, bool) {
	v, ok := c.cells.Load(key)
	if !ok {
		return nil, usage.Context{}, false
	}
	e := v.(*cell)
	return e.tree, e.usage, true
}

// Forget drops every entry of a document.
func (c *Cache) Forget(document string) {
	c.latest.Delete(document)
	c.dropOlder(document, -1)
}

// Builds returns the number of builds started.
func (c *Cache) Builds() int64 { return c.builds.Load() }

// Evicted returns the number of entries dropped by newer versions.
func (c *Cache) Evicted() int64 { return c.evicted.Load() }

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	n := 0
	c.cells.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// observe records key's version and supersedes older entries
// of the same document. It returns false for stale versions.
func (c *Cache) observe(key Key) bool {
	for {
		v, loaded := c.latest.LoadOrStore(key.Document, key.Version)
		if !loaded {
			return true
		}
		seen := v.(int32)
		switch {
		case key.Version == seen:
			return true
		case key.Version < seen:
			return false
		}
		if c.latest.CompareAndSwap(key.Document, seen, key.Version) {
			c.dropOlder(key.Document, key.Version)
			return true
		}
	}
}

// store caches e if key is the newest version of its document.
// observe may supersede key between the check and the store,
// so the check is repeated afterwards.
func (c *Cache) store(key Key, e *cell) {
	if !c.isLatest(key) {
		return
	}
	c.cells.Store(key, e)
	if !c.isLatest(key) {
		c.cells.CompareAndDelete(key, e)
	}
}

func (c *Cache) isLatest(key Key) bool {
	v, ok := c.latest.Load(key.Document)
	return ok && v.(int32) == key.Version
}

// dropOlder removes entries of document with a version below v.
// A negative v removes all of them.
func (c *Cache) dropOlder(document string, v int32) {
	dropped := 0
	c.cells.Range(func(k, _ any) bool {
		key := k.(Key)
		if key.Document == document && (v < 0 || key.Version < v) {
			c.cells.Delete(k)
			dropped++
		}
		return true
	})
	if dropped > 0 {
		c.evicted.Add(int64(dropped))
		c.log.Debug("superseded cache entries",
			slog.String("document", document),
			slog.Int("version", int(v)),
			slog.Int("dropped", dropped))
	}
}
