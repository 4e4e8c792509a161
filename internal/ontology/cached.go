package ontology

import (
	"context"
	"time"

	"dataloom/internal/cache"
)

// CachedResolver is a read-through cache in front of another Resolver.
// It is never authoritative; misses always hit the underlying resolver.
type CachedResolver struct {
	inner Resolver
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedResolver wraps a resolver with a TTL cache.
func NewCachedResolver(inner Resolver, c *cache.Cache, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, cache: c, ttl: ttl}
}

// Metatype resolves through the cache.
func (r *CachedResolver) Metatype(ctx context.Context, id string) (*Metatype, error) {
	value, err := r.cache.GetOrLoad("ontology:metatype:"+id, r.ttl, func() (interface{}, error) {
		return r.inner.Metatype(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.(*Metatype), nil
}

// RelationshipPair resolves through the cache.
func (r *CachedResolver) RelationshipPair(ctx context.Context, id string) (*RelationshipPair, error) {
	value, err := r.cache.GetOrLoad("ontology:pair:"+id, r.ttl, func() (interface{}, error) {
		return r.inner.RelationshipPair(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.(*RelationshipPair), nil
}

// Counterpart is not cached; it is only called during upgrades, which
// invalidate the cache anyway.
func (r *CachedResolver) Counterpart(ctx context.Context, id, targetVersion string) (string, error) {
	return r.inner.Counterpart(ctx, id, targetVersion)
}

// Invalidate drops every cached ontology lookup. Called after a mapping
// upgrade replaces references.
func (r *CachedResolver) Invalidate() {
	r.cache.DeletePrefix("ontology:")
}
