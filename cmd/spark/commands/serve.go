package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/spark/internal/app"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dev server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Serve(cmd.Context(), c.config.GetString("dir"), app.ServeOptions{
				Host:         c.config.GetString("host"),
				Port:         c.config.GetInt("port"),
				NoHMR:        c.config.GetBool("no-hmr"),
				HTTP2:        c.config.GetBool("http2"),
				CacheBackend: c.config.GetString("cache-backend"),
			})
		},
	}
	cmd.Flags().String("host", "", "Host to listen on (default from spark.yaml, then localhost)")
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (default from spark.yaml, then 8080)")
	cmd.Flags().Bool("no-hmr", false, "Disable hot module replacement")
	cmd.Flags().Bool("http2", false, "Serve cleartext HTTP/2 alongside HTTP/1.1")
	cmd.Flags().String("cache-backend", "", "Persistent cache backend: file, sqlite, s3 or none")

	for _, name := range []string{"host", "port", "no-hmr", "http2", "cache-backend"} {
		_ = c.config.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}
