package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"probedash/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.localOnly("serve"); err != nil {
				return err
			}
			ctx := cmd.Context()
			if listen != "" {
				a.cfg.Listen = listen
			}

			snap, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer snap.Close()

			reader := a.openGeo()
			defer reader.Close()

			builder, err := a.newBuilder(snap, reader)
			if err != nil {
				return err
			}
			if a.cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv, err := server.New(a.cfg, builder, snap, locatorOf(reader), a.logger)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}
