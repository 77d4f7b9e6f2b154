package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"caltrack/internal/derive"
	"caltrack/internal/ics"
	appLog "caltrack/internal/log"
)

type exportOptions struct {
	out string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all entries as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func runExport(rootOpts *RootOptions, opts *exportOptions, cmd *cobra.Command) error {
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if err := s.load(ctx); err != nil {
		return s.out.Fail(err)
	}
	entries := derive.Ordered(s.eng.Snapshot())

	var buf bytes.Buffer
	if err := ics.Export(&buf, entries, rootOpts.clock()); err != nil {
		return s.out.Fail(err)
	}

	if opts.out == "" {
		_, err := buf.WriteTo(s.out.Writer)
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return s.out.Fail(WrapExitError(ExitCommandError, "write export", err))
	}
	return s.out.Success(map[string]any{"file": opts.out, "entries": len(entries)}, func(w io.Writer) {
		fmt.Fprintf(w, "exported %d entries to %s\n", len(entries), opts.out)
	})
}

type importOptions struct {
	concurrency int
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Create one entry per event of an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "maximum creates in flight")
	return cmd
}

func runImport(rootOpts *RootOptions, opts *importOptions, path string, cmd *cobra.Command) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read import file", err)
	}
	drafts, err := ics.ParseDrafts(body)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse import file", err)
	}

	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit := opts.concurrency
	if limit <= 0 {
		limit = 1
	}

	var created atomic.Int64
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(limit)
	for _, d := range drafts {
		d := d
		g.Go(func() error {
			if _, err := await(ctx, s.eng.Create(ctx, d)); err != nil {
				appLog.Warn("import create failed", "title", d.Title, "error", err.Error())
				return err
			}
			created.Add(1)
			return nil
		})
	}
	waitErr := g.Wait()

	result := map[string]int{"events": len(drafts), "created": int(created.Load())}
	if waitErr != nil {
		return s.out.Fail(WrapExitError(ExitFailure,
			fmt.Sprintf("imported %d of %d events", created.Load(), len(drafts)), waitErr))
	}
	return s.out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "imported %d of %d events\n", created.Load(), len(drafts))
	})
}
