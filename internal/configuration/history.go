package configuration

import "time"

type HistoryConfig struct {
	Enabled       bool          `json:"enabled"`
	Path          string        `json:"path"`
	FlushInterval time.Duration `json:"flushInterval"`
	BatchSize     int           `json:"batchSize"`
	// records older than this are removed on every flush
	Retention time.Duration `json:"retention"`
}
