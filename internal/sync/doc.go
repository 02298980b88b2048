// Package sync runs the configured datasources of a tools index run and folds their
// results into a single catalog.
//
// # Orchestrator
//
// Orchestrator.Run invokes every datasource concurrently. A single failure fails the
// whole run: a partially fetched index is worse than no new index, so there is no
// partial-success mode. The first failure is returned as an *Error naming the
// datasource, and the context handed to the remaining datasources is cancelled.
//
// Results are merged in a fixed order, the seed catalog first and then datasources in
// the order they were passed, so the output does not depend on which upstream answered
// first.
//
// Retries are not attempted here; they belong to the HTTP transport or to the
// datasource itself.
//
// # Coordinator
//
// The sync/coordinator subpackage re-runs a complete index generation on an interval
// for long running processes. See its package documentation for details.
package sync
