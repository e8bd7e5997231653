package store

import (
	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
)

// BatchStatistic is the contribution of one batch to the statistics
type BatchStatistic struct {
	// Day is formatted with model.DayFormat.
	Day     string
	Serials int
	Success bool
	// Products maps each product to its serial count in the batch.
	Products map[string]int
}

// StatisticsSummary is the all-time view of the statistics
type StatisticsSummary struct {
	Daily        map[string]model.DailyStatistic `json:"daily"`
	Products     map[string]int                  `json:"products"`
	TotalSerials int                             `json:"total_serials"`
	TotalBatches int                             `json:"total_batches"`
	SuccessCount int                             `json:"success_count"`
	ErrorCount   int                             `json:"error_count"`
}

// StatisticsStore abstracts production statistics storage
type StatisticsStore interface {
	// RecordBatch adds a batch to the daily and per-product counters.
	RecordBatch(stat BatchStatistic) error

	// Today returns the counters for day, zero if nothing ran that day.
	Today(day string) (*model.DailyStatistic, error)

	// Summary returns all counters.
	Summary() (*StatisticsSummary, error)
}
