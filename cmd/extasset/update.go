package main

import (
	"github.com/spf13/cobra"

	"extasset/internal/config"
	"extasset/internal/mirror"
	"extasset/internal/store"
)

func newUpdateCmd(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Synchronize configured assets into the local mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMirror(cfg, func(m *mirror.Mirror, _ *store.Store) error {
				return m.Synchronize(cmd.Context(), force)
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "fetch every asset, bypassing check intervals")
	return cmd
}
