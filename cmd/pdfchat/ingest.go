package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	documentuc "github.com/kailas-cloud/pdfchat/internal/usecase/document"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.pdf>",
		Short: "Upload a PDF and index it synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.cliLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return ingestFile(ctx, cmd, a.documents(nil), args[0])
		},
	}
}

// ingestFile uploads path and runs the pipeline in the foreground.
func ingestFile(ctx context.Context, cmd *cobra.Command, docs *documentuc.Service, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	up, err := docs.Upload(ctx, documentuc.Upload{
		FileName:    filepath.Base(path),
		ContentType: documentuc.PDFContentType,
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	id := up.Document.ID()
	fmt.Fprintf(cmd.ErrOrStderr(), "uploaded %s as %s, indexing...\n", up.Document.FileName(), id)

	res, err := docs.Process(ctx, id)
	if err != nil {
		return fmt.Errorf("ingest %s (%s): %w", id, res.ErrorKind, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks\n", id, res.ChunkCount)
	return nil
}
