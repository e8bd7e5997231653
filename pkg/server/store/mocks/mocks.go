// Package mocks provides testify mocks of the store interfaces.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
)

var (
	_ store.HistoryStore    = (*HistoryStore)(nil)
	_ store.StatisticsStore = (*StatisticsStore)(nil)
	_ store.HealthStore     = (*HealthStore)(nil)
)

// HistoryStore implements store.HistoryStore for testing using testify/mock
type HistoryStore struct {
	mock.Mock
}

func (m *HistoryStore) AddBatch(batch *model.Batch, limit int) error {
	args := m.Called(batch, limit)
	return args.Error(0)
}

func (m *HistoryStore) ListBatches(limit int) ([]model.Batch, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Batch), args.Error(1)
}

func (m *HistoryStore) FetchBatch(id string) (*model.Batch, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Batch), args.Error(1)
}

// StatisticsStore implements store.StatisticsStore for testing using testify/mock
type StatisticsStore struct {
	mock.Mock
}

func (m *StatisticsStore) RecordBatch(stat store.BatchStatistic) error {
	args := m.Called(stat)
	return args.Error(0)
}

func (m *StatisticsStore) Today(day string) (*model.DailyStatistic, error) {
	args := m.Called(day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyStatistic), args.Error(1)
}

func (m *StatisticsStore) Summary() (*store.StatisticsSummary, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.StatisticsSummary), args.Error(1)
}

// HealthStore implements store.HealthStore for testing using testify/mock
type HealthStore struct {
	mock.Mock
}

func (m *HealthStore) CheckConnectivity() error {
	args := m.Called()
	return args.Error(0)
}
