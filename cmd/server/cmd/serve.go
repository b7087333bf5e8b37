package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nfrund/parley/internal/server"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	Run: func(cmd *cobra.Command, args []string) {
		s := server.New()
		s.RegisterRoutes()

		listen := addr
		if listen == "" {
			listen = s.Cfg.Addr
		}
		s.Start(listen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides PARLEY_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
