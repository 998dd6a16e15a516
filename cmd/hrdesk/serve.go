package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tbxark/hrdesk"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web chat and form endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				conf.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := hrdesk.New(ctx, conf)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Server.ListenAndServe(ctx, conf.HTTPAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http_addr")
	return cmd
}
