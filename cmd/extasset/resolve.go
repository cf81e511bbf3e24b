package main

import (
	"github.com/spf13/cobra"

	"extasset/internal/config"
	"extasset/internal/mirror"
	"extasset/internal/store"
)

func newResolveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Print the currently servable URL for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMirror(cfg, func(m *mirror.Mirror, _ *store.Store) error {
				url, err := m.ResolveURL(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writePlain("%s\n", url)
			})
		},
	}
}
