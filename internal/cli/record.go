package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"caltrack/internal/engine"
	"caltrack/internal/timer"
)

type recordOptions struct {
	title string
	limit time.Duration
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &recordOptions{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Time a session and save it as an entry",
		Long: `Start the timer and print the elapsed time while it runs.

Press Enter, or send SIGINT/SIGTERM, to stop. The session is then saved as
one entry from the start time to the stop time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "entry title (default from config)")
	cmd.Flags().DurationVar(&opts.limit, "for", 0, "stop automatically after this long")
	return cmd
}

func runRecord(rootOpts *RootOptions, opts *recordOptions, cmd *cobra.Command) error {
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	title := opts.title
	if title == "" {
		title = s.cfg.DefaultTitle
	}
	tm := timer.New(s.eng,
		timer.WithClock(rootOpts.clock),
		timer.WithTickInterval(s.cfg.TickInterval),
		timer.WithTitle(title),
	)
	defer tm.Close()

	ctx := cmd.Context()
	tm.Start(ctx)
	progress := s.out.errWriter()
	fmt.Fprintf(progress, "recording %q, press Enter to stop\n", title)

	var deadline <-chan time.Time
	if opts.limit > 0 {
		t := time.NewTimer(opts.limit)
		defer t.Stop()
		deadline = t.C
	}

	waitForStop(ctx, tm, cmd.InOrStdin(), deadline, progress)
	fmt.Fprintln(progress)

	// The session must be saved even when a signal cancelled ctx.
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RequestTimeout+time.Second)
	defer cancel()

	req, ok := tm.Stop(stopCtx)
	if !ok {
		return s.out.Fail(NewExitError(ExitFailure, "no session was running"))
	}
	o, err := await(stopCtx, req)
	if err != nil {
		return s.out.Fail(err)
	}
	created, isCreated := o.(engine.Created)
	if !isCreated {
		return s.out.Fail(fmt.Errorf("record: unexpected outcome %T", o))
	}

	loc := s.cfg.Location()
	return s.out.Success(viewOf(created.Entry, loc), func(w io.Writer) {
		writeEntry(w, created.Entry, loc)
	})
}

// waitForStop prints the readout on every tick and returns once a line is
// read from in, ctx is done, or the deadline fires.
func waitForStop(ctx context.Context, tm *timer.Timer, in io.Reader, deadline <-chan time.Time, progress io.Writer) {
	lines := make(chan struct{}, 1)
	go func() {
		// Left blocked on stdin if the session ends another way; the
		// process exits soon after.
		r := bufio.NewReader(in)
		if _, err := r.ReadString('\n'); err == nil {
			lines <- struct{}{}
		}
	}()

	for {
		select {
		case tick := <-tm.Ticks():
			fmt.Fprintf(progress, "\r%s", tick.Readout)
		case <-lines:
			return
		case <-deadline:
			return
		case <-ctx.Done():
			return
		}
	}
}
