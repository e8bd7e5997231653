package batch

import (
	"context"
	"sync"
	"time"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/driver"
)

// Job is a batch started by a Runner.
type Job struct {
	ID        string
	Product   string
	Mode      driver.Mode
	Serials   int
	Orders    int
	Operator  string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	last   driver.Event
	result *driver.Result
}

// Status is a point-in-time view of a job.
type Status struct {
	ID        string         `json:"batch_id"`
	Product   string         `json:"product"`
	Mode      driver.Mode    `json:"mode"`
	Serials   int            `json:"count"`
	Orders    int            `json:"orders"`
	StartedAt time.Time      `json:"started_at"`
	Running   bool           `json:"running"`
	Step      driver.Step    `json:"step,omitempty"`
	Order     int            `json:"order,omitempty"`
	Message   string         `json:"message,omitempty"`
	Result    *driver.Result `json:"result,omitempty"`
}

func newJob(id string, plan *driver.Plan, req driver.Request, started time.Time, cancel context.CancelFunc) *Job {
	return &Job{
		ID:        id,
		Product:   plan.Product,
		Mode:      req.Mode,
		Serials:   len(plan.Serials),
		Orders:    len(plan.Orders),
		Operator:  req.Credentials.Email,
		StartedAt: started,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Done is closed when the job has finished and been recorded.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (*driver.Result, error) {
	select {
	case <-j.done:
		return j.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops the job. Orders already submitted to the ERP are kept.
func (j *Job) Cancel() {
	j.cancel()
}

// Result is the outcome of the job, nil while it runs.
func (j *Job) Result() *driver.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Status returns a snapshot of the job.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Status{
		ID:        j.ID,
		Product:   j.Product,
		Mode:      j.Mode,
		Serials:   j.Serials,
		Orders:    j.Orders,
		StartedAt: j.StartedAt,
		Running:   j.result == nil,
		Step:      j.last.Step,
		Order:     j.last.Order,
		Message:   j.last.Message,
		Result:    j.result,
	}
}

func (j *Job) observe(e driver.Event) {
	j.mu.Lock()
	j.last = e
	j.mu.Unlock()
}

func (j *Job) finish(res *driver.Result) {
	j.mu.Lock()
	j.result = res
	j.mu.Unlock()
	close(j.done)
}
