package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"dataloom/internal/config"
	"dataloom/internal/domain"
	"dataloom/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"
)

// Neo4jGraphRepo persists node and edge intents. Entities carry reserved
// underscore-prefixed bookkeeping properties (_id, _metatype, _key) so the
// transformation-produced property bag can be merged with `SET n += $props`
// without collisions.
type Neo4jGraphRepo struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraphRepo creates the graph writer.
func NewNeo4jGraphRepo(store *config.GraphStore) *Neo4jGraphRepo {
	return &Neo4jGraphRepo{driver: store.Driver, database: store.Database}
}

// WriteBulk persists each intent in its own write transaction and reports
// per-intent success or failure. A failing intent never rolls back its
// siblings.
func (r *Neo4jGraphRepo) WriteBulk(ctx context.Context, intents []domain.Intent) []domain.IntentResult {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)

	results := make([]domain.IntentResult, 0, len(intents))
	for _, intent := range intents {
		result := domain.IntentResult{
			IntentID:         intent.ID,
			TransformationID: intent.TransformationID,
			Index:            intent.Index,
		}

		entityID, err := r.writeIntent(ctx, session, intent)
		if err != nil {
			result.Error = err.Error()
			logger.Debugf("graph intent %s failed: %v", intent.ID, err)
		} else {
			result.EntityID = entityID
		}
		results = append(results, result)
	}

	return results
}

func (r *Neo4jGraphRepo) writeIntent(ctx context.Context, session neo4j.SessionWithContext, intent domain.Intent) (string, error) {
	props, err := sanitizeProps(intent.Properties)
	if err != nil {
		return "", err
	}

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		switch intent.Kind {
		case domain.TargetNode:
			return writeNode(ctx, tx, intent, props)
		case domain.TargetEdge:
			return writeEdge(ctx, tx, intent, props)
		default:
			return nil, errors.Errorf("graph writer cannot persist %s intents", intent.Kind)
		}
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func writeNode(ctx context.Context, tx neo4j.ManagedTransaction, intent domain.Intent, props map[string]interface{}) (string, error) {
	keyValue := matchKeyValue(intent)

	var query string
	params := map[string]any{
		"id":       intent.ID,
		"metatype": intent.MetatypeID,
		"key":      keyValue,
		"props":    props,
	}

	switch intent.Conflict {
	case domain.ConflictCreate:
		query = `
			CREATE (n:Entity {_id: $id, _metatype: $metatype, _key: $key})
			SET n += $props
			RETURN n._id AS id
		`
	case domain.ConflictUpdate:
		if keyValue == "" {
			return "", errors.New("update policy requires a unique identifier value in the property bag")
		}
		query = `
			MERGE (n:Entity {_metatype: $metatype, _key: $key})
			ON CREATE SET n._id = $id
			SET n += $props
			RETURN n._id AS id
		`
	case domain.ConflictIgnore:
		if keyValue == "" {
			return "", errors.New("ignore policy requires a unique identifier value in the property bag")
		}
		query = `
			MERGE (n:Entity {_metatype: $metatype, _key: $key})
			ON CREATE SET n._id = $id, n += $props
			RETURN n._id AS id
		`
	default:
		return "", errors.Errorf("unknown conflict policy %q", intent.Conflict)
	}

	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return "", err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return "", err
	}
	id, _ := record.Get("id")
	return id.(string), nil
}

func writeEdge(ctx context.Context, tx neo4j.ManagedTransaction, intent domain.Intent, props map[string]interface{}) (string, error) {
	params := map[string]any{
		"id":          intent.ID,
		"pair":        intent.RelationshipPair,
		"origin":      intent.Origin,
		"destination": intent.Destination,
		"props":       props,
	}

	var relate string
	switch intent.Conflict {
	case domain.ConflictCreate:
		relate = `CREATE (o)-[r:RELATES {_id: $id, _pair: $pair}]->(d) SET r += $props`
	case domain.ConflictUpdate:
		relate = `MERGE (o)-[r:RELATES {_pair: $pair}]->(d) ON CREATE SET r._id = $id SET r += $props`
	case domain.ConflictIgnore:
		relate = `MERGE (o)-[r:RELATES {_pair: $pair}]->(d) ON CREATE SET r._id = $id, r += $props`
	default:
		return "", errors.Errorf("unknown conflict policy %q", intent.Conflict)
	}

	query := fmt.Sprintf(`
		MATCH (o:Entity {_key: $origin})
		MATCH (d:Entity {_key: $destination})
		%s
		RETURN r._id AS id
	`, relate)

	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return "", err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return "", errors.Errorf("origin %q or destination %q entity not found", intent.Origin, intent.Destination)
	}
	id, _ := record.Get("id")
	return id.(string), nil
}

// matchKeyValue pulls the configured unique-identifier value out of the
// property bag, as a string.
func matchKeyValue(intent domain.Intent) string {
	if intent.UniqueKey == "" {
		return ""
	}
	value, ok := intent.Properties[intent.UniqueKey]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

// sanitizeProps flattens the property bag into driver-safe values. Nested
// maps and arrays become JSON strings since Neo4j properties cannot nest.
func sanitizeProps(properties map[string]interface{}) (map[string]interface{}, error) {
	props := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, errors.Wrapf(err, "marshaling property %s", k)
			}
			props[k] = string(raw)
		default:
			props[k] = v
		}
	}
	return props, nil
}
