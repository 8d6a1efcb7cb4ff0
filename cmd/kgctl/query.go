package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/api"
	"github.com/rohankatakam/codegraph/internal/models"
)

var queryCmd = &cobra.Command{
	Use:   "query --repo-id <id>",
	Short: "Query a repository's persisted graph",
	Long: `Run a filtered query_graph request against a repository's
persisted Nodes and Relationships (SPEC_FULL §4.G), optionally narrowed
to a subset of node kinds, relation kinds, or language.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("repo-id", "", "repository id (required)")
	queryCmd.Flags().String("node-kinds", "", "comma-separated node kinds to include (default: all)")
	queryCmd.Flags().String("relations", "", "comma-separated relation kinds to include (default: all)")
	queryCmd.Flags().String("language", "", "restrict results to one language")
	queryCmd.Flags().Bool("include-properties", false, "include each node's Properties map in the output")
	queryCmd.Flags().String("search", "", "instead of query_graph, search node name/qualified-name/docstring for this substring")
	queryCmd.Flags().Bool("export", false, "wrap the query_graph result as a SubgraphExport JSON document")
	queryCmd.MarkFlagRequired("repo-id")
}

func runQuery(cmd *cobra.Command, args []string) error {
	repoID, _ := cmd.Flags().GetString("repo-id")
	nodeKindsRaw, _ := cmd.Flags().GetString("node-kinds")
	relationsRaw, _ := cmd.Flags().GetString("relations")
	language, _ := cmd.Flags().GetString("language")
	includeProps, _ := cmd.Flags().GetBool("include-properties")
	search, _ := cmd.Flags().GetString("search")
	export, _ := cmd.Flags().GetBool("export")

	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Store.Close()

	if search != "" {
		nodes, err := a.Query.SearchNodes(context.Background(), repoID, search, 0)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	}

	q := api.GraphQuery{
		RepositoryID:       repoID,
		AllowedNodeKinds:   parseNodeKinds(nodeKindsRaw),
		AllowedRelations:   parseRelationKinds(relationsRaw),
		Language:           language,
		IncludeProperties:  includeProps,
	}

	if export {
		data, err := a.Query.ExportSubgraph(context.Background(), q)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}

	result, err := a.Query.QueryGraph(context.Background(), q)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func parseNodeKinds(raw string) []models.NodeKind {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]models.NodeKind, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, models.NodeKind(p))
		}
	}
	return out
}

func parseRelationKinds(raw string) []models.RelationKind {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]models.RelationKind, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, models.RelationKind(p))
		}
	}
	return out
}
