package driver

import "time"

// Item is the outcome for one serial.
type Item struct {
	Serial  string `json:"serial"`
	Product string `json:"product,omitempty"`
	OK      bool   `json:"ok"`
	// Attempted is false when the serial never reached the ERP.
	Attempted bool `json:"attempted"`
	// Order is the 1-based order the serial was placed in, 0 if none.
	Order int    `json:"order,omitempty"`
	Error string `json:"error,omitempty"`
}

// OrderResult is the outcome of one production order.
type OrderResult struct {
	Index    int    `json:"index"`
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	OK       bool   `json:"ok"`
	// Step is the step the order failed at.
	Step  Step   `json:"step,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	BatchID    string        `json:"batch_id"`
	Mode       Mode          `json:"mode"`
	Product    string        `json:"product"`
	Items      []Item        `json:"items"`
	Orders     []OrderResult `json:"orders"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	LoggedIn   bool          `json:"logged_in"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	// Err is the error that stopped the run early, if any.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Success reports whether the run had serials and all of them succeeded.
func (r *Result) Success() bool {
	return len(r.Items) > 0 && r.Failed == 0 && r.Err == nil
}

// Serials returns the serials of the run in submission order.
func (r *Result) Serials() []string {
	out := make([]string, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Serial
	}
	return out
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
