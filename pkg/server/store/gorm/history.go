package gorm

import (
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
)

// Ensure HistoryStore implements store.HistoryStore
var _ store.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements store.HistoryStore using GORM
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore creates a new HistoryStore
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const batchColumns = `id, created_at, finished_at, product, mode, serial_count, succeeded, failed, success, error`

// AddBatch stores a batch with its items and prunes old batches.
func (s *HistoryStore) AddBatch(batch *model.Batch, limit int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`INSERT INTO batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			batch.ID, batch.CreatedAt, batch.FinishedAt, batch.Product, batch.Mode,
			batch.SerialCount, batch.Succeeded, batch.Failed, batch.Success, batch.Error,
		).Error
		if err != nil {
			return err
		}

		for i, it := range batch.Items {
			err := tx.Exec(`INSERT INTO batch_items (batch_id, position, serial, product, ok, attempted, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				batch.ID, i, it.Serial, it.Product, it.OK, it.Attempted, it.Error,
			).Error
			if err != nil {
				return err
			}
		}

		if limit <= 0 {
			return nil
		}
		// batch_items rows go with their batch (ON DELETE CASCADE)
		return tx.Exec(`DELETE FROM batches WHERE id NOT IN (SELECT id FROM batches ORDER BY created_at DESC LIMIT ?)`, limit).Error
	})
}

// ListBatches returns the newest batches first.
func (s *HistoryStore) ListBatches(limit int) ([]model.Batch, error) {
	var batches []model.Batch
	err := s.db.Raw(`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC LIMIT ?`, limit).
		Scan(&batches).Error
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return []model.Batch{}, nil
	}

	ids := make([]string, len(batches))
	byID := make(map[string]int, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
		byID[b.ID] = i
	}

	var items []model.BatchItem
	err = s.db.Raw(`SELECT batch_id, position, serial, product, ok, attempted, error FROM batch_items WHERE batch_id IN ? ORDER BY batch_id, position`, ids).
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		i := byID[it.BatchID]
		batches[i].Items = append(batches[i].Items, it)
	}
	return batches, nil
}

// FetchBatch returns a batch by ID with its items.
func (s *HistoryStore) FetchBatch(id string) (*model.Batch, error) {
	var batch model.Batch
	tx := s.db.Raw(`SELECT `+batchColumns+` FROM batches WHERE id = ?`, id).Scan(&batch)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, store.ErrBatchNotFound
	}

	err := s.db.Raw(`SELECT batch_id, position, serial, product, ok, attempted, error FROM batch_items WHERE batch_id = ? ORDER BY position`, id).
		Scan(&batch.Items).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}
