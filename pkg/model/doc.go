// Package model defines the database models for Marathon.
//
// # Models
//
//   - Batch: A finished production batch and its outcome
//   - BatchItem: The outcome of one serial within a batch
//   - DailyStatistic: Production counters for one calendar day
//   - ProductStatistic: Serials produced per product
//
// # Database Schema
//
// The tables are created by the migrations under db/migrations:
//
//   - batches: One row per batch, pruned to the configured history limit
//   - batch_items: Serial outcomes, deleted with their batch
//   - daily_statistics: Counters keyed by day (YYYY-MM-DD)
//   - product_statistics: Counters keyed by product
package model
