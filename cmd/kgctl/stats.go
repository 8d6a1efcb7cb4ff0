package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats --repo-id <id>",
	Short: "Show aggregate graph statistics for a repository",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().String("repo-id", "", "repository id (required)")
	statsCmd.MarkFlagRequired("repo-id")
}

func runStats(cmd *cobra.Command, args []string) error {
	repoID, _ := cmd.Flags().GetString("repo-id")

	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Store.Close()

	stats, err := a.Query.GetGraphStatistics(context.Background(), repoID)
	if err != nil {
		return fmt.Errorf("get graph statistics: %w", err)
	}

	fmt.Printf("📊 Graph statistics: %s\n\n", repoID)
	fmt.Printf("Nodes by kind:\n")
	for kind, n := range stats.NodeCountByKind {
		fmt.Printf("  %-12s %d\n", kind, n)
	}
	fmt.Printf("\nEdges by kind:\n")
	for kind, n := range stats.EdgeCountByKind {
		fmt.Printf("  %-12s %d\n", kind, n)
	}
	fmt.Printf("\nNodes by language:\n")
	for lang, n := range stats.NodeCountByLanguage {
		fmt.Printf("  %-12s %d\n", lang, n)
	}
	fmt.Printf("\nComplexity: avg=%.2f min=%d max=%d median=%.2f\n",
		stats.ComplexityAvg, stats.ComplexityMin, stats.ComplexityMax, stats.ComplexityMedian)
	return nil
}
