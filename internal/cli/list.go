package cli

import (
	"io"

	"github.com/spf13/cobra"

	"caltrack/internal/derive"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Load and print all entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if err := s.load(ctx); err != nil {
		return s.out.Fail(err)
	}

	loc := s.cfg.Location()
	entries := derive.Ordered(s.eng.Snapshot())
	return s.out.Success(viewsOf(entries, loc), func(w io.Writer) {
		writeEntries(w, entries, loc)
	})
}
