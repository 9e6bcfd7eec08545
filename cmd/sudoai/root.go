package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sudoai",
		Short:         "Media job orchestration over a local broker or SQS + AWS Batch",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newSubmitCmd(),
		newStatusCmd(),
		newCancelCmd(),
		newRequeueCmd(),
		newListCmd(),
		newStatsCmd(),
		newSweepCmd(),
		newWorkerCmd(),
		newUploadCmd(),
	)
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
