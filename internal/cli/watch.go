package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"caltrack/internal/derive"
	"caltrack/internal/engine"
	"caltrack/internal/refresh"
	"caltrack/internal/store"
)

type watchOptions struct {
	schedule string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload on a schedule and print the entries when they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "cron schedule (default from config)")
	return cmd
}

func runWatch(rootOpts *RootOptions, opts *watchOptions, cmd *cobra.Command) error {
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	schedule := opts.schedule
	if schedule == "" {
		schedule = s.cfg.RefreshCron
	}
	loc := s.cfg.Location()

	var (
		mu   sync.Mutex
		last store.Store
		seen bool
	)
	show := func(o engine.Outcome) {
		if _, ok := o.(engine.Loaded); !ok {
			return
		}
		snap := s.eng.Snapshot()
		mu.Lock()
		defer mu.Unlock()
		if seen && snap.Equal(last) {
			return
		}
		last, seen = snap, true
		entries := derive.Ordered(snap)
		_ = s.out.Success(viewsOf(entries, loc), func(w io.Writer) {
			writeEntries(w, entries, loc)
			fmt.Fprintln(w)
		})
	}

	sched, err := refresh.New(s.eng, schedule, refresh.WithLocation(loc), refresh.WithNotify(show))
	if err != nil {
		return WrapExitError(ExitCommandError, "watch", err)
	}

	ctx := cmd.Context()
	if _, err := sched.Trigger(ctx); err != nil {
		return s.out.Fail(err)
	}
	return sched.Run(ctx)
}
