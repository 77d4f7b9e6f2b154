package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"caltrack/internal/config"
	"caltrack/internal/engine"
	appLog "caltrack/internal/log"
	"caltrack/internal/remote"
)

// session bundles what a command needs to talk to the events service.
type session struct {
	cfg *config.Config
	eng *engine.Engine
	out *OutputFormatter
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		if cfg == nil {
			return nil, WrapExitError(ExitCommandError, "load config", err)
		}
		// Defaults are usable even when the first-run write failed.
		appLog.Warn("config defaults not saved", "path", path, "error", err.Error())
	}
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if o.Verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}

func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	client := remote.NewClient(cfg.BaseURL)
	eng := engine.New(client,
		engine.WithRequestTimeout(cfg.RequestTimeout),
		engine.WithDefaultTitle(cfg.DefaultTitle),
	)
	s := &session{cfg: cfg, eng: eng, out: o.formatter(cmd)}
	s.out.VerboseLog("using events service at %s", client.BaseURL())
	return s, nil
}

func (s *session) Close() {
	if err := s.eng.Close(); err != nil {
		appLog.Warn("engine close", "error", err.Error())
	}
}

// await waits for req and turns a failed or discarded outcome into an error.
func await(ctx context.Context, req *engine.Request) (engine.Outcome, error) {
	o, err := req.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.AsError(o); err != nil {
		return o, WrapExitError(ExitFailure, string(req.Op), err)
	}
	return o, nil
}

// load refreshes the engine's store from the service.
func (s *session) load(ctx context.Context) error {
	_, err := await(ctx, s.eng.Load(ctx))
	return err
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", arg))
	}
	return id, nil
}
