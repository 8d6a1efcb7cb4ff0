package storage

import (
	"context"

	"github.com/rohankatakam/codegraph/internal/models"
)

// GraphSink adapts a Store into a graph.Sink, chunking writes into
// batches per SPEC_FULL §4.F ("store sink batching"): default 50 for
// bulk (Graph Builder's cross-file pass), 25 for the Orchestrator's
// per-file streaming loop. Batches are written in order; the first
// failing batch's error is returned at once and the remaining batches
// of that call are not attempted.
type GraphSink struct {
	Store     Store
	BatchSize int
}

// NewGraphSink returns a GraphSink with the given batch size; a size of
// 0 or less becomes 50.
func NewGraphSink(store Store, batchSize int) *GraphSink {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &GraphSink{Store: store, BatchSize: batchSize}
}

func (g *GraphSink) CreateNodes(ctx context.Context, nodes []models.Node) error {
	for start := 0; start < len(nodes); start += g.BatchSize {
		end := start + g.BatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		if err := g.Store.CreateNodes(ctx, nodes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (g *GraphSink) CreateRelationships(ctx context.Context, rels []models.Relationship) error {
	for start := 0; start < len(rels); start += g.BatchSize {
		end := start + g.BatchSize
		if end > len(rels) {
			end = len(rels)
		}
		if err := g.Store.CreateRelationships(ctx, rels[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (g *GraphSink) Close() error { return g.Store.Close() }
