// Package graph implements the Graph Builder: a three-pass algorithm that
// turns per-file parse results into Nodes and Relationships, and the Sink
// interface that persists them.
package graph

import (
	"context"

	"github.com/rohankatakam/codegraph/internal/models"
)

// Sink receives the nodes and relationships produced by the Builder.
// The primary implementation writes to the relational store; an optional
// second Sink mirrors the same writes into Neo4j for graph queries that
// outgrow SQL joins.
type Sink interface {
	CreateNodes(ctx context.Context, nodes []models.Node) error
	CreateRelationships(ctx context.Context, rels []models.Relationship) error
	Close() error
}

// MultiSink fans writes out to every configured Sink, failing fast on the
// first error. Used to keep the relational store and the optional Neo4j
// mirror in lockstep without the Builder knowing about either.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks, skipping any nil entries.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) CreateNodes(ctx context.Context, nodes []models.Node) error {
	for _, s := range m.sinks {
		if err := s.CreateNodes(ctx, nodes); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) CreateRelationships(ctx context.Context, rels []models.Relationship) error {
	for _, s := range m.sinks {
		if err := s.CreateRelationships(ctx, rels); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
