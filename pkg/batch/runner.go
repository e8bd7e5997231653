package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/audit"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/driver"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/stream"
)

var (
	// ErrBusy is returned by Start while another batch is running.
	ErrBusy = errors.New("a marathon is already running")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("runner is closed")
)

// Driver runs a batch. *driver.Driver satisfies it.
type Driver interface {
	Run(ctx context.Context, req driver.Request, emit driver.Emitter) *driver.Result
}

// Request is a batch to start.
type Request struct {
	driver.Request
	// ClientIP is recorded in the audit trail.
	ClientIP string
}

// Options configures a Runner.
type Options struct {
	// HistoryLimit is the number of batches kept in the history.
	HistoryLimit int
	// Mode and MaxOrderSize apply to requests that leave them unset.
	Mode         driver.Mode
	MaxOrderSize int
	// Audit receives audit events. Defaults to audit.Log.
	Audit func(audit.Event)
}

// Runner runs at most one batch at a time.
type Runner struct {
	driver  Driver
	history store.HistoryStore
	stats   store.StatisticsStore
	hub     *stream.Hub
	logger  *zap.Logger
	opts    Options
	now     func() time.Time

	mu      sync.Mutex
	current *Job
	closed  bool
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. history, stats and hub may be nil.
func NewRunner(d Driver, history store.HistoryStore, stats store.StatisticsStore, hub *stream.Hub, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Audit == nil {
		opts.Audit = audit.Log
	}
	return &Runner{
		driver:  d,
		history: history,
		stats:   stats,
		hub:     hub,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Start validates req and runs it in the background. Validation errors
// such as serial.ErrNoSerials are returned without starting a job. The job
// is not bound to ctx's cancellation.
func (r *Runner) Start(ctx context.Context, req Request) (*Job, error) {
	if req.BatchID == "" {
		req.BatchID = uuid.NewString()
	}
	if req.Mode == "" {
		req.Mode = r.opts.Mode
	}
	if req.Mode == "" {
		req.Mode = driver.ModeBatch
	}
	if req.MaxOrderSize == 0 {
		req.MaxOrderSize = r.opts.MaxOrderSize
	}
	plan, err := driver.Prepare(req.Request)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if r.current != nil {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := newJob(req.BatchID, plan, req.Request, r.now(), cancel)
	r.current = job
	r.wg.Add(1)
	r.mu.Unlock()

	r.opts.Audit(audit.BatchEvent{
		BatchID:  job.ID,
		Phase:    audit.BatchStarted,
		Operator: job.Operator,
		ClientIP: req.ClientIP,
		Product:  job.Product,
		Mode:     string(job.Mode),
		Serials:  job.Serials,
	})
	r.logger.Info("batch started",
		zap.String("batch_id", job.ID),
		zap.String("product", job.Product),
		zap.Int("serials", job.Serials),
		zap.Int("orders", job.Orders))

	go r.run(jobCtx, job, req)
	return job, nil
}

func (r *Runner) run(ctx context.Context, job *Job, req Request) {
	defer r.wg.Done()
	defer job.cancel()

	emit := driver.EmitterFunc(func(e driver.Event) {
		job.observe(e)
		r.publish(stream.Message{Event: stream.EventStatus, Data: statusData{Event: e, Type: string(e.Level)}})
	})

	res := r.driver.Run(ctx, req.Request, emit)
	r.record(job, req, res)

	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()

	r.publish(stream.Message{Event: stream.EventMarathonComplete, Data: Complete{
		Success:   res.Success(),
		Count:     len(res.Items),
		Product:   res.Product,
		BatchID:   res.BatchID,
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		Error:     res.Error,
	}})
	job.finish(res)
}

// statusData is a driver event as pushed to clients.
type statusData struct {
	driver.Event
	Type string `json:"type"`
}

// Complete is the payload of the marathon_complete event.
type Complete struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count"`
	Product   string `json:"product"`
	BatchID   string `json:"batch_id"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

func (r *Runner) publish(m stream.Message) {
	if r.hub != nil {
		r.hub.Publish(m)
	}
}

// record persists the finished batch. Storage failures are logged; the
// batch outcome is still delivered.
func (r *Runner) record(job *Job, req Request, res *driver.Result) {
	logger := r.logger.With(zap.String("batch_id", res.BatchID))

	if res.LoggedIn || errors.Is(res.Err, driver.ErrLoginFailed) {
		ev := audit.LoginEvent{BatchID: res.BatchID, Operator: job.Operator, Success: res.LoggedIn}
		if !res.LoggedIn {
			ev.ErrorMessage = res.Error
		}
		r.opts.Audit(ev)
	}

	r.opts.Audit(audit.BatchEvent{
		BatchID:      res.BatchID,
		Phase:        audit.BatchFinished,
		Operator:     job.Operator,
		ClientIP:     req.ClientIP,
		Product:      res.Product,
		Mode:         string(res.Mode),
		Serials:      len(res.Items),
		Succeeded:    res.Succeeded,
		Failed:       res.Failed,
		Success:      res.Success(),
		ErrorMessage: res.Error,
	})

	if r.history != nil {
		if err := r.history.AddBatch(ToBatch(res), r.opts.HistoryLimit); err != nil {
			logger.Error("failed to record batch history", zap.Error(err))
		}
	}
	if r.stats != nil {
		if err := r.stats.RecordBatch(Statistic(res)); err != nil {
			logger.Error("failed to record batch statistics", zap.Error(err))
		}
	}

	logger.Info("batch finished",
		zap.Bool("success", res.Success()),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration()))
}

// Current returns the running job, or nil.
func (r *Runner) Current() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Close refuses new batches and waits for the running one. If ctx is done
// first the running batch is cancelled and Close waits for it to wind down.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	job := r.current
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if job != nil {
			job.Cancel()
		}
		<-done
		return ctx.Err()
	}
}

// ToBatch converts a driver result to its history record.
func ToBatch(res *driver.Result) *model.Batch {
	b := &model.Batch{
		ID:          res.BatchID,
		CreatedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Product:     res.Product,
		Mode:        string(res.Mode),
		SerialCount: len(res.Items),
		Succeeded:   res.Succeeded,
		Failed:      res.Failed,
		Success:     res.Success(),
		Error:       res.Error,
		Items:       make([]model.BatchItem, len(res.Items)),
	}
	for i, it := range res.Items {
		b.Items[i] = model.BatchItem{
			BatchID:   res.BatchID,
			Position:  i,
			Serial:    it.Serial,
			Product:   it.Product,
			OK:        it.OK,
			Attempted: it.Attempted,
			Error:     it.Error,
		}
	}
	return b
}

// Statistic is the contribution of res to the production statistics.
func Statistic(res *driver.Result) store.BatchStatistic {
	stat := store.BatchStatistic{
		Day:      res.StartedAt.Format(model.DayFormat),
		Serials:  len(res.Items),
		Success:  res.Success(),
		Products: map[string]int{},
	}
	for _, it := range res.Items {
		if it.Product != "" {
			stat.Products[it.Product]++
		}
	}
	return stat
}
