package model

import "time"

// Batch is a completed production run.
type Batch struct {
	ID          string      `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt   time.Time   `gorm:"column:created_at" json:"timestamp"`
	FinishedAt  time.Time   `gorm:"column:finished_at" json:"finished_at"`
	Product     string      `gorm:"column:product" json:"product"`
	Mode        string      `gorm:"column:mode" json:"mode"`
	SerialCount int         `gorm:"column:serial_count" json:"count"`
	Succeeded   int         `gorm:"column:succeeded" json:"succeeded"`
	Failed      int         `gorm:"column:failed" json:"failed"`
	Success     bool        `gorm:"column:success" json:"success"`
	Error       string      `gorm:"column:error" json:"error,omitempty"`
	Items       []BatchItem `gorm:"foreignKey:BatchID" json:"items,omitempty"`
}

func (Batch) TableName() string {
	return "batches"
}

// Serials returns the serials of the batch in submission order.
func (b *Batch) Serials() []string {
	serials := make([]string, len(b.Items))
	for i, it := range b.Items {
		serials[i] = it.Serial
	}
	return serials
}

// BatchItem is the outcome for one serial of a batch.
type BatchItem struct {
	BatchID   string `gorm:"column:batch_id;primaryKey" json:"-"`
	Position  int    `gorm:"column:position;primaryKey" json:"-"`
	Serial    string `gorm:"column:serial" json:"serial"`
	Product   string `gorm:"column:product" json:"product,omitempty"`
	OK        bool   `gorm:"column:ok" json:"ok"`
	Attempted bool   `gorm:"column:attempted" json:"attempted"`
	Error     string `gorm:"column:error" json:"error,omitempty"`
}

func (BatchItem) TableName() string {
	return "batch_items"
}
