// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var citationsCmd = &cobra.Command{
	Use:   "citations",
	Short: "Download citing records for every corpus document",
	Long: `Citations scans the collection for corpus-level documents that have no
cited_by field yet. For each one it downloads every record matching
"refersto recid <id>" over the configured year range (splitting ranges
that exceed the API hit ceiling), inserts the citing records, and attaches
the list of their ids to the cited document.

A re-run resumes where the previous one stopped: documents that already
carry cited_by are not scanned again.`,
	RunE: runCitations,
}

func init() {
	addCommonFlags(citationsCmd)
	rootCmd.AddCommand(citationsCmd)
}

func runCitations(cmd *cobra.Command, args []string) error {
	h, st, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	defaults := queryDefaults(cmd)

	parents, err := st.ParentIDsWithoutCitedBy(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("documents", len(parents)).Msg("downloading citations")

	for i, id := range parents {
		log.Info().
			Str("id", id).
			Str("progress", fmt.Sprintf("%.2f%%", 100*float64(i)/float64(len(parents)))).
			Msg("citations for document")

		q := defaults
		q.Q = fmt.Sprintf("refersto recid %s", id)
		if err := q.Validate(); err != nil {
			return err
		}

		citedBy, err := h.Download(ctx, q)
		if err != nil {
			return fmt.Errorf("downloading citations for %s: %w", id, err)
		}

		if err := st.SetCitedBy(ctx, id, citedBy); err != nil {
			return err
		}
		log.Info().Str("id", id).Int("citations", len(citedBy)).Msg("stored cited_by")
	}
	return nil
}
