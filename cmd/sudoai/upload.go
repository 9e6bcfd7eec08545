package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sukudo1234/sudoai-mvp/storage"
	"github.com/Sukudo1234/sudoai-mvp/upload"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Manage multipart upload sessions against the raw bucket",
	}
	cmd.AddCommand(newUploadInitiateCmd(), newUploadCompleteCmd(), newUploadAbortCmd())
	return cmd
}

func buildUploadService(ctx context.Context) (*upload.Service, func(), error) {
	a, err := buildApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.New(ctx, a.cfg.Storage, storage.WithLogger(a.logger))
	if err != nil {
		a.Close(ctx)
		return nil, nil, err
	}

	return upload.NewService(store, a.logger), func() { a.Close(ctx) }, nil
}

func newUploadInitiateCmd() *cobra.Command {
	var size int64

	cmd := &cobra.Command{
		Use:   "initiate <filename>",
		Short: "Open a multipart session and print presigned part targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, done, err := buildUploadService(ctx)
			if err != nil {
				return err
			}
			defer done()

			session, err := svc.Initiate(ctx, args[0], size)
			if err != nil {
				return err
			}
			return printJSON(cmd, session)
		},
	}
	cmd.Flags().Int64Var(&size, "size", 0, "file size in bytes")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}

func newUploadCompleteCmd() *cobra.Command {
	var key, sessionID string

	cmd := &cobra.Command{
		Use:   "complete <parts-json>",
		Short: "Finalize a session from its collected part ETags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var parts []storage.CompletedPart
			if err := json.Unmarshal([]byte(args[0]), &parts); err != nil {
				return fmt.Errorf("decode parts: %w", err)
			}

			svc, done, err := buildUploadService(ctx)
			if err != nil {
				return err
			}
			defer done()

			result, err := svc.Complete(ctx, key, sessionID, parts)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key returned by initiate")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id returned by initiate")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newUploadAbortCmd() *cobra.Command {
	var key, sessionID string

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Discard a session and its uploaded parts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, done, err := buildUploadService(ctx)
			if err != nil {
				return err
			}
			defer done()

			return svc.Abort(ctx, key, sessionID)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key returned by initiate")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id returned by initiate")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
