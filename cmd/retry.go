package cmd

import (
	"fmt"

	"reelforge/internal/pipeline"
	"reelforge/internal/store"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry <item-id>",
	Short: "Retry a failed content item from its failed step",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	pipeline.NewSyncRunner(rt.machine)

	itemID := args[0]
	if err := rt.machine.Retry(ctx, itemID); err != nil {
		return err
	}

	item, err := rt.store.GetContentItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status == store.StatusFailed {
		return fmt.Errorf("item %s failed again at %s: %s", itemID, item.FailedStep, item.ErrorMessage)
	}

	fmt.Printf("Item %s completed, output: %s\n", itemID, item.OutputPath)
	return nil
}
