package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"extasset/internal/blobstore"
	"extasset/internal/config"
	"extasset/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Serve the local mirror over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.ListenAddr)
			if err != nil {
				return err
			}

			blobs, err := blobstore.NewLocalDir(cfg.MirrorDir, cfg.BaseURL)
			if err != nil {
				return err
			}

			srv := server.New(addr, blobs, baseURLPath(cfg.BaseURL), logger)
			return srv.ListenAndServe()
		},
	}
}
