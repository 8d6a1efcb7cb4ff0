package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rohankatakam/codegraph/internal/models"
)

// Neo4jMirror is an optional second Sink that replicates nodes and
// relationships into Neo4j using UNWIND-batched, parameterized MERGE
// queries, adapted from the coupling-graph batch writer this repo's
// teacher used for File/Function/Class/Commit nodes: the per-entity-type
// methods collapse into one generic pair here since every Node is a single
// tagged struct rather than a family of Go types.
type Neo4jMirror struct {
	driver   neo4j.DriverWithContext
	database string
	batch    int
}

// NewNeo4jMirror connects to uri and verifies connectivity before returning.
func NewNeo4jMirror(ctx context.Context, uri, username, password, database string, batchSize int) (*Neo4jMirror, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: new driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Neo4jMirror{driver: driver, database: database, batch: batchSize}, nil
}

// CreateNodes MERGEs nodes by id, labeled "CodeNode" plus a kind-specific
// secondary label so Cypher callers can still `MATCH (n:Function)`.
func (m *Neo4jMirror) CreateNodes(ctx context.Context, nodes []models.Node) error {
	for start := 0; start < len(nodes); start += m.batch {
		end := start + m.batch
		if end > len(nodes) {
			end = len(nodes)
		}
		if err := m.createNodeBatch(ctx, nodes[start:end]); err != nil {
			return fmt.Errorf("neo4j: create nodes batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (m *Neo4jMirror) createNodeBatch(ctx context.Context, batch []models.Node) error {
	byKind := make(map[models.NodeKind][]map[string]any)
	for _, n := range batch {
		byKind[n.Kind] = append(byKind[n.Kind], map[string]any{
			"id":             n.ID,
			"repository_id":  n.RepositoryID,
			"name":           n.Name,
			"qualified_name": n.QualifiedName,
			"file_path":      n.FilePath,
			"language":       n.Language,
			"is_public":      n.IsPublic,
			"is_exported":    n.IsExported,
		})
	}
	for kind, params := range byKind {
		label := sanitizeLabel(string(kind))
		query := fmt.Sprintf(`
			UNWIND $nodes AS node
			MERGE (n:CodeNode:%s {id: node.id})
			SET n += node
		`, label)
		_, err := neo4j.ExecuteQuery(ctx, m.driver, query,
			map[string]any{"nodes": params},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(m.database))
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateRelationships MERGEs edges matched by the CodeNode.id unique key,
// grouped by relationship kind the same way the teacher's batch writer
// grouped by GraphEdge.Label.
func (m *Neo4jMirror) CreateRelationships(ctx context.Context, rels []models.Relationship) error {
	byKind := make(map[models.RelationKind][]models.Relationship)
	for _, r := range rels {
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}
	for kind, group := range byKind {
		for start := 0; start < len(group); start += m.batch {
			end := start + m.batch
			if end > len(group) {
				end = len(group)
			}
			if err := m.createRelBatch(ctx, kind, group[start:end]); err != nil {
				return fmt.Errorf("neo4j: create %s batch %d-%d: %w", kind, start, end, err)
			}
		}
	}
	return nil
}

func (m *Neo4jMirror) createRelBatch(ctx context.Context, kind models.RelationKind, batch []models.Relationship) error {
	params := make([]map[string]any, len(batch))
	for i, r := range batch {
		params[i] = map[string]any{
			"from_id":    r.SourceNodeID,
			"to_id":      r.TargetNodeID,
			"confidence": r.Confidence,
			"is_direct":  r.IsDirect,
		}
	}
	query := fmt.Sprintf(`
		UNWIND $rels AS rel
		MATCH (from:CodeNode {id: rel.from_id})
		MATCH (to:CodeNode {id: rel.to_id})
		MERGE (from)-[r:%s]->(to)
		SET r.confidence = rel.confidence, r.is_direct = rel.is_direct
	`, sanitizeLabel(relLabel(kind)))
	_, err := neo4j.ExecuteQuery(ctx, m.driver, query,
		map[string]any{"rels": params},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(m.database))
	return err
}

// relLabel turns a hyphenated RelationKind ("depends-on") into a Cypher-safe
// relationship type ("DEPENDS_ON").
func relLabel(kind models.RelationKind) string {
	out := make([]rune, 0, len(kind))
	for _, r := range string(kind) {
		if r == '-' {
			out = append(out, '_')
			continue
		}
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// sanitizeLabel keeps only alphanumerics and underscore, the same
// defense the teacher's batch writer applied before interpolating a label
// into a Cypher string (labels cannot be parameterized).
func sanitizeLabel(label string) string {
	out := make([]rune, 0, len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		case r == '-':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "Unknown"
	}
	// Capitalize first rune for label convention (CodeNode, Function, ...).
	if out[0] >= 'a' && out[0] <= 'z' {
		out[0] -= 'a' - 'A'
	}
	return string(out)
}

func (m *Neo4jMirror) Close() error {
	return m.driver.Close(context.Background())
}
