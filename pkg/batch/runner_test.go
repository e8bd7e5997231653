package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/audit"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/driver"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store/mocks"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var started = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// fakeDriver succeeds every serial unless fail is set. When release is
// non-nil it blocks until release is closed or ctx is cancelled.
type fakeDriver struct {
	release chan struct{}
	fail    error
	login   bool

	mu   sync.Mutex
	reqs []driver.Request
}

func (f *fakeDriver) Run(ctx context.Context, req driver.Request, emit driver.Emitter) *driver.Result {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	emit.Emit(driver.Event{BatchID: req.BatchID, Kind: driver.KindStep, Level: driver.LevelInfo, Step: driver.StepLogin, Message: "Step 1/10: Logging in"})

	res := &driver.Result{
		BatchID:    req.BatchID,
		Mode:       req.Mode,
		Product:    req.Product,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		LoggedIn:   f.login,
	}

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			res.Err = ctx.Err()
		}
	}
	if f.fail != nil {
		res.Err = f.fail
	}
	for _, s := range req.Serials {
		it := driver.Item{Serial: s, Product: req.Product, Attempted: res.Err == nil, OK: res.Err == nil}
		if res.Err != nil {
			it.Error = res.Err.Error()
			res.Failed++
		} else {
			res.Succeeded++
		}
		res.Items = append(res.Items, it)
	}
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	return res
}

type auditLog struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *auditLog) record(e audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *auditLog) ids() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ids []string
	for _, e := range a.events {
		ids = append(ids, e.MessageID())
	}
	return ids
}

func request(serials ...string) Request {
	return Request{
		Request: driver.Request{
			Product:     "MLS-AB",
			Serials:     serials,
			Credentials: driver.Credentials{Email: "operator@example.com", Password: "secret"},
		},
		ClientIP: "10.0.0.1",
	}
}

func TestRunnerRecordsFinishedBatch(t *testing.T) {
	history := &mocks.HistoryStore{}
	stats := &mocks.StatisticsStore{}
	hub := stream.NewHub(16)
	sub := hub.Subscribe()
	defer hub.Close()

	history.On("AddBatch", mock.MatchedBy(func(b *model.Batch) bool {
		return b.ID == "b-1" && b.Success && len(b.Items) == 2 && b.Items[1].Position == 1
	}), 25).Return(nil)
	stats.On("RecordBatch", store.BatchStatistic{
		Day:      "2024-03-01",
		Serials:  2,
		Success:  true,
		Products: map[string]int{"MLS-AB": 2},
	}).Return(nil)

	trail := &auditLog{}
	r := NewRunner(&fakeDriver{login: true}, history, stats, hub,
		Options{HistoryLimit: 25, Audit: trail.record}, zaptest.NewLogger(t))

	req := request("AB100", "AB101")
	req.BatchID = "b-1"
	job, err := r.Start(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "b-1", job.ID)
	assert.Equal(t, 2, job.Serials)
	assert.Equal(t, driver.ModeBatch, job.Mode)

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Nil(t, r.Current())
	assert.False(t, job.Status().Running)

	history.AssertExpectations(t)
	stats.AssertExpectations(t)
	assert.Equal(t, []string{"batch", "erp-login", "batch"}, trail.ids())

	var events []string
	var complete Complete
	for len(events) < 2 {
		m := <-sub.C()
		events = append(events, m.Event)
		if m.Event == stream.EventMarathonComplete {
			complete = m.Data.(Complete)
		}
	}
	assert.Equal(t, []string{stream.EventStatus, stream.EventMarathonComplete}, events)
	assert.Equal(t, Complete{Success: true, Count: 2, Product: "MLS-AB", BatchID: "b-1", Succeeded: 2}, complete)

	require.NoError(t, r.Close(context.Background()))
}

func TestRunnerRefusesSecondBatch(t *testing.T) {
	d := &fakeDriver{release: make(chan struct{})}
	r := NewRunner(d, nil, nil, nil, Options{Audit: func(audit.Event) {}}, zaptest.NewLogger(t))

	job, err := r.Start(context.Background(), request("AB100"))
	require.NoError(t, err)
	assert.Same(t, job, r.Current())

	_, err = r.Start(context.Background(), request("AB200"))
	assert.ErrorIs(t, err, ErrBusy)

	close(d.release)
	_, err = job.Wait(context.Background())
	require.NoError(t, err)

	next, err := r.Start(context.Background(), request("AB200"))
	require.NoError(t, err)
	_, err = next.Wait(context.Background())
	require.NoError(t, err)

	require.NoError(t, r.Close(context.Background()))
	_, err = r.Start(context.Background(), request("AB300"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunnerRejectsInvalidRequests(t *testing.T) {
	r := NewRunner(&fakeDriver{}, nil, nil, nil, Options{Audit: func(audit.Event) {}}, zaptest.NewLogger(t))
	defer func() { _ = r.Close(context.Background()) }()

	_, err := r.Start(context.Background(), Request{})
	assert.ErrorIs(t, err, serial.ErrNoSerials)

	req := request("AB100")
	req.Credentials = driver.Credentials{}
	_, err = r.Start(context.Background(), req)
	assert.ErrorIs(t, err, driver.ErrCredentialsRequired)

	assert.Nil(t, r.Current())
}

func TestRunnerJobOutlivesStartContext(t *testing.T) {
	d := &fakeDriver{release: make(chan struct{})}
	r := NewRunner(d, nil, nil, nil, Options{Audit: func(audit.Event) {}}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	job, err := r.Start(ctx, request("AB100"))
	require.NoError(t, err)
	cancel()

	close(d.release)
	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success())
	require.NoError(t, r.Close(context.Background()))
}

func TestRunnerCloseCancelsRunningBatch(t *testing.T) {
	d := &fakeDriver{release: make(chan struct{})}
	history := &mocks.HistoryStore{}
	history.On("AddBatch", mock.Anything, 0).Return(errors.New("database is down"))
	r := NewRunner(d, history, nil, nil, Options{Audit: func(audit.Event) {}}, zaptest.NewLogger(t))

	job, err := r.Start(context.Background(), request("AB100"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Close(ctx), context.DeadlineExceeded)

	res := job.Result()
	require.NotNil(t, res)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, res.Failed)
	history.AssertExpectations(t)
}

func TestRunnerAuditsFailedLogin(t *testing.T) {
	trail := &auditLog{}
	r := NewRunner(&fakeDriver{fail: driver.ErrInvalidCredentials}, nil, nil, nil,
		Options{Audit: trail.record}, zaptest.NewLogger(t))

	job, err := r.Start(context.Background(), request("AB100"))
	require.NoError(t, err)
	_, err = job.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.Close(context.Background()))

	trail.mu.Lock()
	defer trail.mu.Unlock()
	require.Len(t, trail.events, 3)
	login, ok := trail.events[1].(audit.LoginEvent)
	require.True(t, ok)
	assert.False(t, login.Success)
	assert.Equal(t, "operator@example.com", login.Operator)
	assert.Contains(t, login.ErrorMessage, "check credentials")
}

func TestJobWaitHonoursContext(t *testing.T) {
	d := &fakeDriver{release: make(chan struct{})}
	r := NewRunner(d, nil, nil, nil, Options{Audit: func(audit.Event) {}}, zaptest.NewLogger(t))

	job, err := r.Start(context.Background(), request("AB100"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = job.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Eventually(t, func() bool { return job.Status().Step == driver.StepLogin }, time.Second, time.Millisecond)

	close(d.release)
	require.NoError(t, r.Close(context.Background()))
}

func TestStatisticCountsProducts(t *testing.T) {
	res := &driver.Result{
		StartedAt: started,
		Items: []driver.Item{
			{Serial: "AB100", Product: "MLS-AB", OK: true},
			{Serial: "CD100", Product: "MLS-CD"},
			{Serial: "ZZ1"},
		},
		Failed: 2,
	}

	stat := Statistic(res)
	assert.Equal(t, "2024-03-01", stat.Day)
	assert.Equal(t, 3, stat.Serials)
	assert.False(t, stat.Success)
	assert.Equal(t, map[string]int{"MLS-AB": 1, "MLS-CD": 1}, stat.Products)
}
