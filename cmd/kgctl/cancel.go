package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <parsing-id>",
	Short: "Cancel an in-progress parse job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Store.Close()

	wasActive := a.Orch.CancelParse(args[0])
	if wasActive {
		fmt.Printf("✓ cancellation requested for %s\n", args[0])
	} else {
		fmt.Printf("⚠️  %s was not an active parse job\n", args[0])
	}
	return nil
}
