package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"caltrack/internal/derive"
)

type reportOptions struct {
	days int
}

type dayView struct {
	Day     string `json:"day"`
	Total   string `json:"total"`
	Seconds int64  `json:"seconds"`
	Entries int    `json:"entries"`
}

type reportView struct {
	Days  []dayView `json:"days"`
	Total string    `json:"total"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print tracked time per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().IntVar(&opts.days, "days", 7, "number of days up to and including today")
	return cmd
}

func runReport(rootOpts *RootOptions, opts *reportOptions, cmd *cobra.Command) error {
	if opts.days <= 0 {
		return NewExitError(ExitCommandError, "--days must be positive")
	}
	if opts.days > derive.MaxReportDays {
		return NewExitError(ExitCommandError, fmt.Sprintf("--days must be at most %d", derive.MaxReportDays))
	}
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if err := s.load(ctx); err != nil {
		return s.out.Fail(err)
	}

	loc := s.cfg.Location()
	now := rootOpts.clock().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from := today.AddDate(0, 0, -(opts.days - 1))

	totals, err := derive.DailyTotals(derive.Ordered(s.eng.Snapshot()), from, now, loc)
	if err != nil {
		return s.out.Fail(err)
	}

	view := reportView{Days: make([]dayView, 0, len(totals))}
	var sum time.Duration
	for _, d := range totals {
		sum += d.Total
		view.Days = append(view.Days, dayView{
			Day:     d.Day.Format("2006-01-02"),
			Total:   derive.Readout(d.Total),
			Seconds: int64(d.Total / time.Second),
			Entries: d.Entries,
		})
	}
	view.Total = derive.Readout(sum)

	return s.out.Success(view, func(w io.Writer) {
		for _, d := range view.Days {
			fmt.Fprintf(w, "%s  %s  %d\n", d.Day, d.Total, d.Entries)
		}
		fmt.Fprintf(w, "total       %s\n", view.Total)
	})
}
