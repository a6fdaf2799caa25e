// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/inspire-harvester/internal/harvest"
	"github.com/pdiddy/inspire-harvester/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "inspire-harvester/0.1"
	defaultPageSize  = 200
	defaultFromYear  = 1990
)

// defaultFields is the metadata projection requested for every record.
var defaultFields = []string{
	"titles",
	"authors.full_name",
	"authors.affiliations",
	"authors.bai",
	"referenced_authors_bais",
	"author_count",
	"publication_info",
	"document_type",
	"inspire_categories",
	"references",
	"citation_count",
	"citation_count_without_self_citations",
	"collaborations",
	"arxiv_eprints",
	"preprint_date",
	"citeable",
	"abstracts",
}

// addCommonFlags registers the flags shared by harvest and citations.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	cmd.Flags().String("sort", harvest.SortMostRecent, "result order: mostrecent or mostcited")
	cmd.Flags().Int("size", defaultPageSize, "results per page")
	cmd.Flags().String("fields", "", "comma-separated field projection (default: full record projection)")
	cmd.Flags().Int("from", defaultFromYear, "earliest publication year")
	cmd.Flags().Int("to", time.Now().Year(), "latest publication year")
	cmd.Flags().String("journal", "", "SQLite journal file for range probe diagnostics")
	cmd.Flags().String("metrics-addr", "", "address to expose Prometheus metrics on (e.g. :9090)")
}

// storeConfig reads the store settings from the config file and
// environment (flags do not override these; the store is deployment
// configuration, not a per-run knob).
func storeConfig() types.StoreConfig {
	return types.StoreConfig{
		URI:        viper.GetString("store.uri"),
		Database:   viper.GetString("store.database"),
		Collection: viper.GetString("store.collection"),
	}
}

// fetchConfig builds the fetcher settings from flags.
func fetchConfig(cmd *cobra.Command) types.FetchConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BaseURL: viper.GetString("fetch.base_url"),
	}
}

// queryDefaults builds the query template from flags; the q expression is
// filled in by the caller.
func queryDefaults(cmd *cobra.Command) harvest.Query {
	sort, _ := cmd.Flags().GetString("sort")
	size, _ := cmd.Flags().GetInt("size")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")

	fields := defaultFields
	if raw, _ := cmd.Flags().GetString("fields"); raw != "" {
		fields = strings.Split(raw, ",")
	}

	return harvest.Query{
		Sort:     sort,
		Size:     size,
		Fields:   fields,
		Earliest: harvest.Interval{Lo: from, Hi: to},
	}
}
