package main

import (
	"context"
	"fmt"

	"github.com/rohankatakam/codegraph/internal/analyzer"
	"github.com/rohankatakam/codegraph/internal/config"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/langregistry"
	"github.com/rohankatakam/codegraph/internal/orchestrator"
	"github.com/rohankatakam/codegraph/internal/parser"
	"github.com/rohankatakam/codegraph/internal/progress"
	"github.com/rohankatakam/codegraph/internal/query"
	"github.com/rohankatakam/codegraph/internal/storage"
)

// app bundles the wired components every subcommand needs, built once
// from cfg so ingest/query/analyze/stats share one Store connection
// instead of each subcommand repeating the setup.
type app struct {
	Store       storage.Store
	Orch        *orchestrator.Orchestrator
	Broadcaster *progress.Broadcaster
	Query       *query.Engine
	Analyze     *analyzer.Analyzer
}

func newApp() (*app, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var sink graph.Sink = storage.NewGraphSink(store, cfg.Ingest.BulkBatchSize)
	if cfg.Neo4j.Enabled {
		mirror, err := graph.NewNeo4jMirror(context.Background(), cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database, cfg.Ingest.BulkBatchSize)
		if err != nil {
			return nil, fmt.Errorf("init neo4j mirror: %w", err)
		}
		sink = graph.NewMultiSink(sink, mirror)
	}
	langs := langregistry.NewRegistry()

	mode := parser.DefaultMode
	var treeSitterGo *parser.TreeSitterGoParser
	if cfg.Parser.EnableTreeSitterGo {
		mode = parser.ModeTreeSitterGo
		treeSitterGo, err = parser.NewTreeSitterGoParser(cfg.Parser.MaxExcerptLines)
		if err != nil {
			return nil, fmt.Errorf("init tree-sitter-go parser: %w", err)
		}
	}
	parsers := parser.NewRegistry(mode, cfg.Parser.MaxExcerptLines, treeSitterGo)

	broadcaster := progress.NewBroadcaster()

	var checkpoints *orchestrator.CheckpointStore
	if cfg.Ingest.CheckpointPath != "" {
		checkpoints, err = orchestrator.OpenCheckpointStore(cfg.Ingest.CheckpointPath)
		if err != nil {
			logger.WithError(err).Warn("failed to open checkpoint store, resuming disabled")
		}
	}

	orch := orchestrator.New(store, sink, langs, parsers, broadcaster, checkpoints, logger)
	orch.Workers = cfg.Ingest.Workers
	orch.StreamBatchSize = cfg.Ingest.StreamBatchSize
	orch.BulkBatchSize = cfg.Ingest.BulkBatchSize

	q := query.New(store)
	a := analyzer.New(q)

	return &app{Store: store, Orch: orch, Broadcaster: broadcaster, Query: q, Analyze: a}, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return storage.NewPostgresStore(cfg.Storage.PostgresDSN, logger)
	case "sqlite", "":
		return storage.NewSQLiteStore(cfg.Storage.LocalPath, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}
}
