// Package store provides storage abstractions for the Marathon server.
//
// This package defines interfaces for database operations, allowing the
// server endpoints and the batch runner to be decoupled from the specific
// database implementation. The gorm subpackage implements them on
// PostgreSQL.
//
// # Available Stores
//
//   - HistoryStore: Completed batches and their per-serial outcomes
//   - StatisticsStore: Daily and per-product production counters
//   - HealthStore: Database connectivity
//
// # Usage
//
//	history := gorm.NewHistoryStore(db)
//	batch, err := history.FetchBatch(id)
//	if err != nil {
//	    if errors.Is(err, store.ErrBatchNotFound) {
//	        // Handle not found
//	    }
//	}
package store
