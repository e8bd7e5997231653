package driver

import "time"

// Kind classifies an Event.
type Kind string

const (
	KindStatus   Kind = "status"
	KindStep     Kind = "step"
	KindOrder    Kind = "order"
	KindComplete Kind = "complete"
)

// Level is the severity shown in the activity log.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a progress update from a run.
type Event struct {
	Time    time.Time `json:"time"`
	BatchID string    `json:"batch_id"`
	Kind    Kind      `json:"kind"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Step    Step      `json:"step,omitempty"`
	// Order is the 1-based order the event belongs to, and Orders the total.
	Order  int `json:"order,omitempty"`
	Orders int `json:"orders,omitempty"`
}

// Emitter receives events. Emit must not block for long; the run waits
// for it.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

var discard = EmitterFunc(func(Event) {})
