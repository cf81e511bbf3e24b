package main

import (
	"time"

	"github.com/spf13/cobra"

	"extasset/internal/config"
	"extasset/internal/mirror"
	"extasset/internal/store"
)

type assetStatus struct {
	Name          string `json:"name"`
	SourceURL     string `json:"source_url"`
	ResolvedURL   string `json:"resolved_url"`
	ContentHash   string `json:"content_hash,omitempty"`
	LastCheckedAt string `json:"last_checked_at,omitempty"`
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured assets and their sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMirror(cfg, func(m *mirror.Mirror, st *store.Store) error {
				statuses := make([]assetStatus, 0, len(cfg.Assets))
				for _, entry := range cfg.Assets {
					status := assetStatus{Name: entry.Name, SourceURL: entry.URL}

					resolved, err := m.ResolveURL(cmd.Context(), entry.Name)
					if err != nil {
						return err
					}
					status.ResolvedURL = resolved

					record, err := st.Get(cmd.Context(), entry.Name)
					if err != nil {
						return err
					}
					if record != nil {
						status.ContentHash = record.ContentHash
						status.LastCheckedAt = record.LastCheckedAt.Format(time.RFC3339)
					}
					statuses = append(statuses, status)
				}

				if *jsonOutput {
					return writeJSON(statuses)
				}
				for _, status := range statuses {
					if err := writePlain("%s\n", formatStatusLine(status)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func formatStatusLine(status assetStatus) string {
	hash := "never synced"
	if status.ContentHash != "" {
		hash = shortHash(status.ContentHash)
		if status.LastCheckedAt != "" {
			hash += " checked " + status.LastCheckedAt
		}
	}
	return status.Name + "  [" + hash + "]  " + status.ResolvedURL
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
