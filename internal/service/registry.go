package service

import (
	"context"
	"fmt"
	"time"

	"dataloom/internal/cache"
	"dataloom/internal/domain"
	"dataloom/internal/ontology"
	"dataloom/internal/repository"
	"dataloom/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Registry resolves shape fingerprints to type mappings. Unknown shapes
// get an inactive shell mapping so staged records accumulate without
// erroring until an operator configures transformations.
type Registry struct {
	mappings repository.MappingRepository
	resolver ontology.Resolver
	cache    *cache.Cache
	ttl      time.Duration
}

// NewRegistry creates the registry.
func NewRegistry(mappings repository.MappingRepository, resolver ontology.Resolver, c *cache.Cache, ttl time.Duration) *Registry {
	return &Registry{
		mappings: mappings,
		resolver: resolver,
		cache:    c,
		ttl:      ttl,
	}
}

func mappingCacheKey(sourceID, shapeHash string) string {
	return fmt.Sprintf("mapping:%s:%s", sourceID, shapeHash)
}

// Resolve returns the mapping for a (source, shape) pair, creating an
// inactive shell with the sample payload attached when none exists. The
// cache is read-through; mutations invalidate it.
func (r *Registry) Resolve(ctx context.Context, sourceID, shapeHash string, sample map[string]interface{}) (*domain.MappingResolution, error) {
	cached, err := r.cache.GetOrLoad(mappingCacheKey(sourceID, shapeHash), r.ttl, func() (interface{}, error) {
		mapping, err := r.mappings.GetByShape(ctx, sourceID, shapeHash)
		if err == nil {
			return &domain.MappingResolution{Mapping: mapping}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		shell := &domain.TypeMapping{
			ID:           uuid.NewString(),
			DataSourceID: sourceID,
			ShapeHash:    shapeHash,
			Sample:       sample,
			Active:       false,
		}
		if createErr := r.mappings.Create(ctx, shell); createErr != nil {
			// A concurrent resolve may have won the unique index race;
			// the stored mapping is the one that counts.
			existing, getErr := r.mappings.GetByShape(ctx, sourceID, shapeHash)
			if getErr != nil {
				return nil, createErr
			}
			return &domain.MappingResolution{Mapping: existing}, nil
		}

		logger.Infof("created shell mapping %s for source %s shape %s", shell.ID, sourceID, shapeHash)
		return &domain.MappingResolution{Mapping: shell, Created: true}, nil
	})
	if err != nil {
		return nil, err
	}
	return cached.(*domain.MappingResolution), nil
}

// Get returns one mapping by id.
func (r *Registry) Get(ctx context.Context, id string) (*domain.TypeMapping, error) {
	return r.mappings.Get(ctx, id)
}

// ListBySource returns all mappings of one source.
func (r *Registry) ListBySource(ctx context.Context, sourceID string) ([]domain.TypeMapping, error) {
	return r.mappings.ListBySource(ctx, sourceID)
}

// SetActive toggles a mapping and invalidates its cache entry.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) error {
	mapping, err := r.mappings.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.mappings.SetActive(ctx, id, active); err != nil {
		return err
	}
	r.cache.Delete(mappingCacheKey(mapping.DataSourceID, mapping.ShapeHash))
	return nil
}

// AddTransformation validates a transformation against the ontology and
// appends it to a mapping.
func (r *Registry) AddTransformation(ctx context.Context, mappingID string, t domain.Transformation) (*domain.Transformation, error) {
	mapping, err := r.mappings.Get(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := r.validateOntology(ctx, &t); err != nil {
		return nil, err
	}

	mapping.Transformations = append(mapping.Transformations, t)
	if err := r.mappings.Update(ctx, mapping); err != nil {
		return nil, err
	}
	r.cache.Delete(mappingCacheKey(mapping.DataSourceID, mapping.ShapeHash))
	return &t, nil
}

// UpdateTransformation replaces one transformation in place.
func (r *Registry) UpdateTransformation(ctx context.Context, mappingID string, t domain.Transformation) error {
	mapping, err := r.mappings.Get(ctx, mappingID)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.validateOntology(ctx, &t); err != nil {
		return err
	}

	found := false
	for i := range mapping.Transformations {
		if mapping.Transformations[i].ID == t.ID {
			mapping.Transformations[i] = t
			found = true
			break
		}
	}
	if !found {
		return domain.ErrNotFound
	}

	if err := r.mappings.Update(ctx, mapping); err != nil {
		return err
	}
	r.cache.Delete(mappingCacheKey(mapping.DataSourceID, mapping.ShapeHash))
	return nil
}

// RemoveTransformation deletes one transformation from a mapping.
func (r *Registry) RemoveTransformation(ctx context.Context, mappingID, transformationID string) error {
	mapping, err := r.mappings.Get(ctx, mappingID)
	if err != nil {
		return err
	}

	kept := mapping.Transformations[:0]
	found := false
	for _, t := range mapping.Transformations {
		if t.ID == transformationID {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return domain.ErrNotFound
	}
	mapping.Transformations = kept

	if err := r.mappings.Update(ctx, mapping); err != nil {
		return err
	}
	r.cache.Delete(mappingCacheKey(mapping.DataSourceID, mapping.ShapeHash))
	return nil
}

// Upgrade rewrites every transformation's ontology references to their
// counterparts in the target version. The whole batch resolves before
// anything is written, and the write itself is transactional: one
// unresolvable reference fails the entire upgrade.
func (r *Registry) Upgrade(ctx context.Context, mappingIDs []string, targetVersion string) error {
	mappings := make([]*domain.TypeMapping, 0, len(mappingIDs))
	for _, id := range mappingIDs {
		mapping, err := r.mappings.Get(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "loading mapping %s", id)
		}

		for i := range mapping.Transformations {
			t := &mapping.Transformations[i]
			if t.MetatypeID != "" {
				counterpart, err := r.resolver.Counterpart(ctx, t.MetatypeID, targetVersion)
				if err != nil {
					return errors.Wrapf(err, "upgrading metatype %s of mapping %s", t.MetatypeID, id)
				}
				t.MetatypeID = counterpart
			}
			if t.RelationshipPairID != "" {
				counterpart, err := r.resolver.Counterpart(ctx, t.RelationshipPairID, targetVersion)
				if err != nil {
					return errors.Wrapf(err, "upgrading relationship pair %s of mapping %s", t.RelationshipPairID, id)
				}
				t.RelationshipPairID = counterpart
			}
		}
		mapping.OntologyVersion = targetVersion
		mappings = append(mappings, mapping)
	}

	if err := r.mappings.ReplaceAll(ctx, mappings); err != nil {
		return err
	}

	for _, mapping := range mappings {
		r.cache.Delete(mappingCacheKey(mapping.DataSourceID, mapping.ShapeHash))
	}
	if cached, ok := r.resolver.(*ontology.CachedResolver); ok {
		cached.Invalidate()
	}

	logger.Infof("upgraded %d mappings to ontology version %s", len(mappings), targetVersion)
	return nil
}

// validateOntology checks references and syncs Required flags with the
// ontology's required-property sets.
func (r *Registry) validateOntology(ctx context.Context, t *domain.Transformation) error {
	var required []string

	switch t.Kind {
	case domain.TargetNode:
		metatype, err := r.resolver.Metatype(ctx, t.MetatypeID)
		if err != nil {
			return errors.Wrapf(err, "resolving metatype %s", t.MetatypeID)
		}
		required = metatype.RequiredProperties
	case domain.TargetEdge:
		pair, err := r.resolver.RelationshipPair(ctx, t.RelationshipPairID)
		if err != nil {
			return errors.Wrapf(err, "resolving relationship pair %s", t.RelationshipPairID)
		}
		required = pair.RequiredProperties
	default:
		return nil
	}

	requiredSet := make(map[string]bool, len(required))
	for _, name := range required {
		requiredSet[name] = true
	}
	for i := range t.Keys {
		if requiredSet[t.Keys[i].PropertyName] {
			t.Keys[i].Required = true
		}
	}
	return nil
}
