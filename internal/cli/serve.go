package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"caltrack/internal/web"
)

type serveOptions struct {
	listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory events server for local use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default from config)")
	return cmd
}

func runServe(rootOpts *RootOptions, opts *serveOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	listen := opts.listen
	if listen == "" {
		listen = cfg.Server.Listen
	}
	if !rootOpts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	return web.NewServer().Run(cmd.Context(), listen)
}
