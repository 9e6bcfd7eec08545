package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

func newSubmitCmd() *cobra.Command {
	var dedupeKey string

	cmd := &cobra.Command{
		Use:   "submit <type> <params-json>",
		Short: "Submit a job and print its task id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			res, err := a.eng.Submit(ctx, job.Type(args[0]), json.RawMessage(args[1]), dedupeKey)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&dedupeKey, "dedupe-key", "", "queue-level deduplication key")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Report the merged record and upstream status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			view, err := a.eng.Status(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a job that has not started running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			rec, err := a.eng.Cancel(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

func newRequeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <task-id>",
		Short: "Resubmit a failed or cancelled job as a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			res, err := a.eng.Requeue(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		jobType string
		status  string
		limit   int
		offset  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			records, err := a.eng.List(ctx, job.ListOpts{
				Type:   job.Type(jobType),
				Status: job.Status(status),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}
	cmd.Flags().StringVar(&jobType, "type", "", "filter by job type")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print job counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			counts, err := a.eng.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, counts)
		},
	}
}

func newSweepCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete terminal job records older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			n, err := a.eng.Sweep(ctx, olderThan)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]int{"purged": n})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "terminal-record retention window")
	return cmd
}
