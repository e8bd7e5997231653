package gorm

import (
	"sort"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
)

// Ensure StatisticsStore implements store.StatisticsStore
var _ store.StatisticsStore = (*StatisticsStore)(nil)

// StatisticsStore implements store.StatisticsStore using GORM
type StatisticsStore struct {
	db *gorm.DB
}

// NewStatisticsStore creates a new StatisticsStore
func NewStatisticsStore(db *gorm.DB) *StatisticsStore {
	return &StatisticsStore{db: db}
}

// RecordBatch upserts the day's counters and each product's serial count.
func (s *StatisticsStore) RecordBatch(stat store.BatchStatistic) error {
	successes, errors := 0, 1
	if stat.Success {
		successes, errors = 1, 0
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			INSERT INTO daily_statistics (day, serials, batches, successes, errors) VALUES (?, ?, 1, ?, ?)
			ON CONFLICT (day) DO UPDATE SET
				serials = daily_statistics.serials + EXCLUDED.serials,
				batches = daily_statistics.batches + 1,
				successes = daily_statistics.successes + EXCLUDED.successes,
				errors = daily_statistics.errors + EXCLUDED.errors
		`, stat.Day, stat.Serials, successes, errors).Error
		if err != nil {
			return err
		}

		products := make([]string, 0, len(stat.Products))
		for p := range stat.Products {
			products = append(products, p)
		}
		sort.Strings(products)

		for _, p := range products {
			err := tx.Exec(`
				INSERT INTO product_statistics (product, serials) VALUES (?, ?)
				ON CONFLICT (product) DO UPDATE SET serials = product_statistics.serials + EXCLUDED.serials
			`, p, stat.Products[p]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Today returns the counters for day.
func (s *StatisticsStore) Today(day string) (*model.DailyStatistic, error) {
	stat := model.DailyStatistic{Day: day}
	err := s.db.Raw(`SELECT day, serials, batches, successes, errors FROM daily_statistics WHERE day = ?`, day).
		Scan(&stat).Error
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// Summary returns every day's counters, the product counters and totals.
func (s *StatisticsStore) Summary() (*store.StatisticsSummary, error) {
	var days []model.DailyStatistic
	if err := s.db.Raw(`SELECT day, serials, batches, successes, errors FROM daily_statistics ORDER BY day`).Scan(&days).Error; err != nil {
		return nil, err
	}
	var products []model.ProductStatistic
	if err := s.db.Raw(`SELECT product, serials FROM product_statistics ORDER BY product`).Scan(&products).Error; err != nil {
		return nil, err
	}

	summary := &store.StatisticsSummary{
		Daily:    make(map[string]model.DailyStatistic, len(days)),
		Products: make(map[string]int, len(products)),
	}
	for _, d := range days {
		summary.Daily[d.Day] = d
		summary.TotalSerials += d.Serials
		summary.TotalBatches += d.Batches
		summary.SuccessCount += d.Successes
		summary.ErrorCount += d.Errors
	}
	for _, p := range products {
		summary.Products[p.Product] = p.Serials
	}
	return summary, nil
}
