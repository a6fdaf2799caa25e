// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pdiddy/inspire-harvester/internal/harvest"
	"github.com/pdiddy/inspire-harvester/internal/inspire"
	"github.com/pdiddy/inspire-harvester/internal/journal"
	"github.com/pdiddy/inspire-harvester/internal/store"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Download the corpus matching a query into the document store",
	Long: `Harvest probes the hit count of the query over the configured year range,
recursively splits ranges that meet the API's 10,000-hit ceiling, paginates
each bounded sub-range, and inserts every record. Records already in the
collection are skipped, so interrupted runs can simply be restarted.

Documents inserted by harvest are marked as corpus-level (parent) records;
the citations subcommand later resolves their cited-by lists.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("query", "", "search expression (e.g. \"cn cms or cn atlas\")")
	harvestCmd.Flags().String("query-file", "", "YAML file with named queries to run in sequence")
	addCommonFlags(harvestCmd)

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	queryExpr, _ := cmd.Flags().GetString("query")
	queryFile, _ := cmd.Flags().GetString("query-file")
	if queryExpr == "" && queryFile == "" {
		return fmt.Errorf("provide --query or --query-file")
	}

	defaults := queryDefaults(cmd)

	var queries []harvest.Query
	if queryFile != "" {
		qf, err := harvest.ReadQueryFile(queryFile)
		if err != nil {
			return err
		}
		for _, spec := range qf.Queries {
			q, err := spec.ToQuery(defaults)
			if err != nil {
				return err
			}
			queries = append(queries, q)
		}
	} else {
		q := defaults
		q.Q = queryExpr
		if err := q.Validate(); err != nil {
			return err
		}
		queries = append(queries, q)
	}

	h, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	h.Mark = map[string]any{"is_parent_document": true}

	ctx := cmd.Context()
	for _, q := range queries {
		log.Info().Str("q", q.Q).Stringer("range", q.Earliest).Msg("starting harvest")
		ids, err := h.Download(ctx, q)
		if err != nil {
			return fmt.Errorf("harvesting %q: %w", q.Q, err)
		}
		log.Info().Str("q", q.Q).Int("documents", len(ids)).Msg("harvest complete")
	}
	return nil
}

// setup wires the fetcher, store, optional journal, and optional metrics
// endpoint behind a single harvester. The returned cleanup closes what
// was opened.
func setup(cmd *cobra.Command) (*harvest.Harvester, *store.Mongo, func(), error) {
	ctx := cmd.Context()

	st, err := store.Connect(ctx, storeConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := st.EnsureIndexes(ctx); err != nil {
		st.Close(ctx)
		return nil, nil, nil, err
	}

	cfg := fetchConfig(cmd)
	client := inspire.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg)
	h := harvest.New(client, st)

	cleanup := func() {
		if err := st.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}

	if path, _ := cmd.Flags().GetString("journal"); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		h.Recorder = j
		closeStore := cleanup
		cleanup = func() {
			if err := j.Close(); err != nil {
				log.Warn().Err(err).Msg("closing journal")
			}
			closeStore()
		}
	}

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go func() {
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				log.Warn().Err(err).Msg("metrics endpoint stopped")
			}
		}()
	}

	return h, st, cleanup, nil
}
