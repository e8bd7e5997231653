package store

import (
	"errors"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
)

// ErrBatchNotFound is returned when a batch doesn't exist
var ErrBatchNotFound = errors.New("batch not found")

// HistoryStore abstracts batch history storage
type HistoryStore interface {
	// AddBatch stores a batch and its items, then prunes the history to the
	// newest limit batches. A limit of zero or less keeps everything.
	AddBatch(batch *model.Batch, limit int) error

	// ListBatches returns the newest batches first, with their items.
	ListBatches(limit int) ([]model.Batch, error)

	// FetchBatch returns a batch by ID.
	// Returns ErrBatchNotFound if the batch doesn't exist.
	FetchBatch(id string) (*model.Batch, error)
}
