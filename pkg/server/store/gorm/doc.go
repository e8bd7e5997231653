// Package gorm implements the history, statistics and health stores of
// pkg/server/store on PostgreSQL through GORM.
package gorm
