package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"caltrack/internal/derive"
	"caltrack/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the remote call or the operation failed
	ExitCommandError = 2 // bad arguments, unknown ids, unreadable files
)

// ExitError carries a process exit code alongside the error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // progress and verbose lines, kept off Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success writes data as JSON, or calls text for human output.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail reports err in the configured format and returns it for RunE.
func (f *OutputFormatter) Fail(err error) error {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: err.Error()})
	}
	return err
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// entryView is the JSON shape of an entry in command output.
type entryView struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"dateStart"`
	End      time.Time `json:"dateEnd"`
	Duration string    `json:"duration"`
}

func viewOf(e model.Entry, loc *time.Location) entryView {
	return entryView{
		ID:       e.ID,
		Title:    e.Title,
		Start:    e.Start.In(loc),
		End:      e.End.In(loc),
		Duration: derive.Readout(e.Duration()),
	}
}

func viewsOf(entries []model.Entry, loc *time.Location) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, viewOf(e, loc))
	}
	return out
}

const displayLayout = "2006-01-02 15:04"

func writeEntries(w io.Writer, entries []model.Entry, loc *time.Location) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no entries")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tDURATION\tTITLE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Start.In(loc).Format(displayLayout),
			e.End.In(loc).Format(displayLayout),
			derive.Readout(e.Duration()),
			e.Title,
		)
	}
	tw.Flush()
}

func writeEntry(w io.Writer, e model.Entry, loc *time.Location) {
	fmt.Fprintf(w, "#%d %q %s - %s (%s)\n",
		e.ID,
		e.Title,
		e.Start.In(loc).Format(displayLayout),
		e.End.In(loc).Format(displayLayout),
		derive.Readout(e.Duration()),
	)
}
