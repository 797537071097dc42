package fionn

import "sync"

// pathCacheShards is the shard count for PathCache: reads are wait-free
// relative to writers in *other* shards, and same-shard inserts only ever
// race other inserts of the same (idempotent) value.
const pathCacheShards = 32

type pathCacheShard struct {
	mu sync.RWMutex
	m  map[string]Path
}

// PathCache maps path strings to parsed Paths for reuse across repeated
// resolve calls against many tapes (the same paths resolved against one
// tape after another). Parsing is idempotent, so a racing
// duplicate insert on a miss is harmless — last writer wins.
type PathCache struct {
	shards [pathCacheShards]*pathCacheShard
}

// NewPathCache constructs an empty cache. The zero value is not usable;
// always go through this constructor, the way cue's runtime builtins
// registry is built through a package-level constructor instead of a bare
// struct literal (internal/core/runtime/imports.go).
func NewPathCache() *PathCache {
	c := &PathCache{}
	for i := range c.shards {
		c.shards[i] = &pathCacheShard{m: make(map[string]Path)}
	}
	return c
}

func (c *PathCache) shardFor(s string) *pathCacheShard {
	return c.shards[fnv32(s)%pathCacheShards]
}

func fnv32(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// GetOrParse returns the cached Path for s, parsing and inserting it on a
// miss; cache.GetOrParse(s) always equals ParsePath(s).
func (c *PathCache) GetOrParse(s string) (Path, error) {
	shard := c.shardFor(s)

	shard.mu.RLock()
	if p, ok := shard.m[s]; ok {
		shard.mu.RUnlock()
		return p, nil
	}
	shard.mu.RUnlock()

	p, err := ParsePath(s)
	if err != nil {
		return Path{}, err
	}

	shard.mu.Lock()
	shard.m[s] = p
	shard.mu.Unlock()
	return p, nil
}

// defaultPathCache is a process-optional singleton exposed via an explicit
// handle; library code must not assume its presence. Nothing in this
// package reaches for it implicitly — callers that want the shared cache
// must call DefaultPathCache() themselves.
var defaultPathCache = NewPathCache()

// DefaultPathCache returns the process-wide shared PathCache. It is just a
// convenience; nothing requires using it over a private *PathCache.
func DefaultPathCache() *PathCache { return defaultPathCache }
