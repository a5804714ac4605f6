// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package indexer

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIndexer holds Prometheus metrics for the indexer orchestrator (C6),
// following the sync.Once-guarded registration pattern of the teacher's
// pkg/ingestion/metricsIngestion.
type metricsIndexer struct {
	once sync.Once

	filesIndexed  prometheus.Counter
	filesSkipped  prometheus.Counter
	extractErrors prometheus.Counter
	runDuration   prometheus.Histogram
}

var metricsIndexerInstance metricsIndexer

func (m *metricsIndexer) init() {
	m.once.Do(func() {
		m.filesIndexed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lidx_indexer_files_indexed_total", Help: "Files extracted and written at a new graph version.",
		})
		m.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lidx_indexer_files_skipped_total", Help: "Files carried forward unchanged (content hash matched).",
		})
		m.extractErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lidx_indexer_extract_errors_total", Help: "Files whose extractor returned an error.",
		})
		m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "lidx_indexer_run_duration_seconds", Help: "Wall-clock duration of a full reindex run.",
		})
		prometheus.MustRegister(m.filesIndexed, m.filesSkipped, m.extractErrors, m.runDuration)
	})
}
