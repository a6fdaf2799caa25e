package types

import "time"

// API hard limits enforced by the INSPIREHEP literature endpoint.
const (
	// HitCeiling is the maximum number of matching records a single
	// bounded query may return before the server refuses deeper
	// pagination. Queries at or above this ceiling must be narrowed.
	HitCeiling = 10000

	// MaxPageSize is the server-imposed per-page ceiling. Requesting a
	// larger size yields HTTP 400.
	MaxPageSize = 1000
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "inspire-harvester/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the rate-limited fetcher.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the literature API endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// RetryAfterFallback is the wait applied to a 429 response that
	// lacks a usable retry-after header (default 10s).
	RetryAfterFallback time.Duration `json:"retry_after_fallback" yaml:"retry_after_fallback"`

	// GatewayTimeoutDelay is the fixed wait before retrying a 504
	// response (default 2s).
	GatewayTimeoutDelay time.Duration `json:"gateway_timeout_delay" yaml:"gateway_timeout_delay"`
}

// HarvestConfig holds settings for the traversal engine.
type HarvestConfig struct {
	// Query is the opaque search expression (e.g. "cn cms or cn atlas").
	Query string `json:"query" yaml:"query"`

	// Sort is the result ordering: "mostrecent" or "mostcited".
	Sort string `json:"sort" yaml:"sort"`

	// PageSize is the results-per-page request size (<= MaxPageSize).
	PageSize int `json:"page_size" yaml:"page_size"`

	// Fields is the metadata field projection requested per record.
	Fields []string `json:"fields" yaml:"fields"`

	// EarliestFrom and EarliestTo bound the publication year range the
	// traversal covers (inclusive; From <= To).
	EarliestFrom int `json:"earliest_from" yaml:"earliest_from"`
	EarliestTo   int `json:"earliest_to" yaml:"earliest_to"`
}

// StoreConfig holds settings for the MongoDB document store.
type StoreConfig struct {
	// URI is the MongoDB connection string.
	URI string `json:"uri" yaml:"uri"`

	// Database and Collection name the target namespace.
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
}

// JournalConfig holds settings for the SQLite harvest journal.
type JournalConfig struct {
	// Path is the journal database file. Empty disables the journal.
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Harvest HarvestConfig `json:"harvest" yaml:"harvest"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
}
