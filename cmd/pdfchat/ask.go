package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
	chatuc "github.com/kailas-cloud/pdfchat/internal/usecase/chat"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var noStream bool

	cmd := &cobra.Command{
		Use:   "ask <documentId> <question>...",
		Short: "Ask a question about an indexed document",
		Args:  cobra.MinimumNArgs(2),
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

			q := domchat.Question{DocumentID: args[0], Query: strings.Join(args[1:], " ")}
			return ask(ctx, cmd.OutOrStdout(), a.chat, q, !noStream)
		},
	}
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "print the answer once it is complete")
	return cmd
}

func ask(ctx context.Context, out io.Writer, svc *chatuc.Service, q domchat.Question, stream bool) error {
	if !stream {
		answer, err := svc.Answer(ctx, q)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, answer)
		return err
	}

	s, err := svc.Stream(ctx, q)
	if err != nil {
		return err
	}
	defer s.Close()

	for {
		fragment, err := s.Recv()
		if errors.Is(err, io.EOF) {
			_, err = fmt.Fprintln(out)
			return err
		}
		if err != nil {
			return err
		}
		if _, err := io.WriteString(out, fragment); err != nil {
			return err
		}
	}
}
