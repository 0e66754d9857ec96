// Package dag builds and executes the job dependency graph of a pipeline
// run.
//
// Build turns the workflow of a config.Model into a validated DAG: every
// requires edge must point at a job present in the same workflow, no job
// may transitively depend on itself, and aggregator consumption sets must
// be covered by dependency edges. All violations abort before any job
// executes.
//
// Executor walks the DAG with a bounded worker pool. A job becomes ready
// when its last dependency reaches a terminal state; at dispatch the
// worker checks the dependencies' outcomes, so failure propagates to
// transitive dependents as a distinct skipped status while independent
// branches keep running.
package dag
