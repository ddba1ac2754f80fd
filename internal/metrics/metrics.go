// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when expvar's handler is mounted by the serve command.
package metrics

import "expvar"

// Ingestion counters.
var (
	DocumentsIngested     = expvar.NewInt("graphrag_documents_ingested_total")
	EntitiesUpserted      = expvar.NewInt("graphrag_entities_upserted_total")
	RelationshipsUpserted = expvar.NewInt("graphrag_relationships_upserted_total")
	RelationshipsSkipped  = expvar.NewInt("graphrag_relationships_skipped_total")
	ChunksIndexed         = expvar.NewInt("graphrag_chunks_indexed_total")
)

// Oracle counters.
var (
	OracleCalls    = expvar.NewInt("graphrag_oracle_calls_total")
	OracleFailures = expvar.NewInt("graphrag_oracle_failures_total")
	PairsDropped   = expvar.NewInt("graphrag_inference_pairs_dropped_total")
)

// Question-answering counters.
var (
	QuestionsAnswered = expvar.NewInt("graphrag_questions_total")
	QueriesAnswered   = expvar.NewInt("graphrag_queries_answered_total")
	QueriesRejected   = expvar.NewInt("graphrag_queries_rejected_total")
	QueriesFailed     = expvar.NewInt("graphrag_queries_failed_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Add increments the given counter by n.
func Add(counter *expvar.Int, n int) { counter.Add(int64(n)) }
