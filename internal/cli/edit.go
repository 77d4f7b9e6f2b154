package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"caltrack/internal/engine"
)

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change the title of an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runRename(opts *RootOptions, idArg, title string, cmd *cobra.Command) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if err := s.load(ctx); err != nil {
		return s.out.Fail(err)
	}
	entry, ok := s.eng.Snapshot().Get(id)
	if !ok {
		return s.out.Fail(NewExitError(ExitCommandError, fmt.Sprintf("no entry with id %d", id)))
	}

	loc := s.cfg.Location()
	if entry.Title == title {
		return s.out.Success(viewOf(entry, loc), func(w io.Writer) {
			fmt.Fprintln(w, "unchanged")
		})
	}

	entry.Title = title
	o, err := await(ctx, s.eng.Update(ctx, entry))
	if err != nil {
		return s.out.Fail(err)
	}
	updated, isUpdated := o.(engine.Updated)
	if !isUpdated {
		return s.out.Fail(fmt.Errorf("rename: unexpected outcome %T", o))
	}
	return s.out.Success(viewOf(updated.Entry, loc), func(w io.Writer) {
		writeEntry(w, updated.Entry, loc)
	})
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
}

func runDelete(opts *RootOptions, idArg string, cmd *cobra.Command) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if _, err := await(ctx, s.eng.Delete(ctx, id)); err != nil {
		return s.out.Fail(err)
	}
	return s.out.Success(map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "deleted #%d\n", id)
	})
}
