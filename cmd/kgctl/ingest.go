package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/codegraph/internal/orchestrator"
	"github.com/rohankatakam/codegraph/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <repository-url-or-local-path>",
	Short: "Clone/read a repository and build its knowledge graph",
	Long: `Parse a repository's source files into a code-entity graph and
persist it, streaming Nodes and Relationships as each file finishes
rather than waiting for the whole repository.

Examples:
  kgctl ingest https://github.com/org/repo
  kgctl ingest /path/to/local/checkout --local
  kgctl ingest https://github.com/org/repo --branch develop --no-cross-file-refs`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("name", "", "display name for the ingested source (default: derived from the path/URL)")
	ingestCmd.Flags().Bool("local", false, "treat the argument as a local filesystem path instead of a remote URL")
	ingestCmd.Flags().String("branch", "", "branch to clone (default: main)")
	ingestCmd.Flags().String("archon-source-id", "", "external source id to associate with this parse")
	ingestCmd.Flags().String("archon-project-id", "", "external project id to associate with this parse")
	ingestCmd.Flags().Int("max-file-size-kb", 0, "skip files larger than this (default: 500KB)")
	ingestCmd.Flags().Bool("no-cross-file-refs", false, "skip the cross-file import/qualified-name resolution pass")
}

func runIngest(cmd *cobra.Command, args []string) error {
	target := args[0]
	isLocal, _ := cmd.Flags().GetBool("local")
	name, _ := cmd.Flags().GetString("name")
	branch, _ := cmd.Flags().GetString("branch")
	archonSourceID, _ := cmd.Flags().GetString("archon-source-id")
	archonProjectID, _ := cmd.Flags().GetString("archon-project-id")
	maxFileSizeKB, _ := cmd.Flags().GetInt("max-file-size-kb")
	noCrossFileRefs, _ := cmd.Flags().GetBool("no-cross-file-refs")

	if name == "" {
		name = target
	}

	req := orchestrator.ParseRequest{
		Name:                name,
		BranchName:          branch,
		ArchonSourceID:      archonSourceID,
		ArchonProjectID:     archonProjectID,
		MaxFileSizeKB:       maxFileSizeKB,
		EnableCrossFileRefs: boolPtr(!noCrossFileRefs),
	}
	if isLocal {
		req.LocalPath = target
	} else {
		req.RepositoryURL = target
	}

	fmt.Printf("🚀 kgctl ingest: %s\n\n", target)

	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Store.Close()

	fmt.Printf("[1/2] Starting parse job...\n")
	ctx := context.Background()
	src, estimate, err := a.Orch.StartParse(ctx, req)
	if err != nil {
		return fmt.Errorf("start parse: %w", err)
	}
	fmt.Printf("  ✓ Source registered: %s (estimated %s)\n", src.ID, estimate)
	events := a.Broadcaster.Subscribe(src.ID)

	fmt.Printf("\n[2/2] Streaming progress...\n")
	return watchProgress(events, src.ID)
}

// watchProgress prints progress events as they arrive, matching the
// teacher's emoji/status-prefix banner style, until the job's
// terminal event (complete/error/cancel) is seen. On an interactive
// terminal, update events overwrite the same line instead of scrolling
// the screen; redirected to a file or another process, each update
// gets its own line since carriage returns would just corrupt the log.
func watchProgress(events <-chan progress.Event, sourceID string) error {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	for ev := range events {
		if ev.SourceID != sourceID {
			continue
		}
		switch ev.Kind {
		case progress.EventStart:
			fmt.Printf("  🔄 parsing started\n")
		case progress.EventUpdate:
			line := fmt.Sprintf("  📊 %d/%d files parsed, %d nodes, %d relationships (%s)",
				ev.FilesParsed, ev.FilesFound, ev.Nodes, ev.Relationships, ev.CurrentFile)
			if isTTY {
				fmt.Printf("\r\033[K%s", line)
			} else {
				fmt.Println(line)
			}
		case progress.EventComplete:
			if isTTY {
				fmt.Println()
			}
			fmt.Printf("  ✓ complete: %d nodes, %d relationships\n", ev.Nodes, ev.Relationships)
			if len(ev.RecentErrors) > 0 {
				fmt.Printf("  ⚠️  %d recent errors (last %d shown):\n", len(ev.RecentErrors), len(ev.RecentErrors))
				for _, e := range ev.RecentErrors {
					fmt.Printf("      - %s\n", e)
				}
			}
			return nil
		case progress.EventError:
			return fmt.Errorf("parse failed: %s", ev.Message)
		case progress.EventCancel:
			return fmt.Errorf("parse cancelled: %s", ev.Message)
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
