package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/browser"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
)

// PageOpener opens browser pages. *browser.Manager satisfies it.
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// Options configures a Driver.
type Options struct {
	LoginURL string
	StartURL string
	// NavigationTimeout bounds page loads.
	NavigationTimeout time.Duration
	// StepTimeout bounds waiting for an element within a step.
	StepTimeout time.Duration
	// DialogTimeout bounds waiting for the optional confirmation dialog.
	DialogTimeout time.Duration
	// Settle is the pause after actions that trigger a server round trip,
	// such as the product autocomplete.
	Settle time.Duration
	// PollInterval is how often the login redirect is checked.
	PollInterval time.Duration
	// Mode and MaxOrderSize apply to requests that leave them unset.
	Mode         Mode
	MaxOrderSize int
}

// OptionsFromConfig derives driver options from the server configuration.
func OptionsFromConfig(cfg *config.MarathonConfig) Options {
	return Options{
		LoginURL:          cfg.OdooLoginURL,
		StartURL:          cfg.OdooStartURL,
		NavigationTimeout: cfg.NavigationTimeout(),
		StepTimeout:       cfg.StepTimeout(),
		Settle:            time.Second,
		Mode:              Mode(cfg.RunMode),
		MaxOrderSize:      cfg.MaxOrderSize,
	}
}

func (o Options) withDefaults() Options {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = 10 * time.Second
	}
	if o.DialogTimeout <= 0 {
		o.DialogTimeout = 3 * time.Second
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.Mode == "" {
		o.Mode = ModeBatch
	}
	return o
}

// Driver runs production batches against the ERP.
type Driver struct {
	opener PageOpener
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a driver that opens pages with opener.
func New(opener PageOpener, opts Options, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		opener: opener,
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Run executes req and returns its result. Run never returns a nil Result;
// errors that stop the run are recorded in Result.Err and every unique
// serial in req has exactly one Item.
func (d *Driver) Run(ctx context.Context, req Request, emit Emitter) *Result {
	if emit == nil {
		emit = discard
	}
	if req.BatchID == "" {
		req.BatchID = uuid.NewString()
	}
	if req.Mode == "" {
		req.Mode = d.opts.Mode
	}
	if req.MaxOrderSize == 0 {
		req.MaxOrderSize = d.opts.MaxOrderSize
	}

	r := &run{
		d:      d,
		emit:   emit,
		logger: d.logger.With(zap.String("batch_id", req.BatchID)),
		index:  map[string]int{},
		res: &Result{
			BatchID:   req.BatchID,
			Mode:      req.Mode,
			StartedAt: d.now(),
			Items:     []Item{},
			Orders:    []OrderResult{},
		},
	}

	plan, err := Prepare(req)
	r.seed(plan)
	if err != nil {
		r.abort(err)
		return r.complete()
	}

	r.execute(ctx, req.Credentials, plan)
	return r.complete()
}

// run is the state of a single Run call.
type run struct {
	d      *Driver
	emit   Emitter
	logger *zap.Logger
	res    *Result
	index  map[string]int
	page   browser.Page
	orders int
	order  int
}

func (r *run) seed(plan *Plan) {
	r.res.Product = plan.Product
	products := map[string]string{}
	orders := map[string]int{}
	for _, o := range plan.Orders {
		for _, s := range o.Serials {
			products[s] = o.Product
			orders[s] = o.Index
		}
	}

	for _, s := range plan.Serials {
		r.index[s] = len(r.res.Items)
		item := Item{Serial: s, Product: products[s], Order: orders[s]}
		if reason, ok := plan.Rejected[s]; ok {
			item.Error = reason
		}
		r.res.Items = append(r.res.Items, item)
	}
	r.orders = len(plan.Orders)
}

func (r *run) execute(ctx context.Context, creds Credentials, plan *Plan) {
	r.status(LevelInfo, fmt.Sprintf("Starting batch: %d serial(s) in %d order(s) (%s mode)",
		len(plan.Serials)-len(plan.Rejected), len(plan.Orders), r.res.Mode))
	for _, s := range plan.Serials {
		if reason, ok := plan.Rejected[s]; ok {
			r.status(LevelWarning, fmt.Sprintf("Skipping %s: %s", s, reason))
		}
	}

	page, err := r.d.opener.NewPage(ctx)
	if err != nil {
		r.abort(fmt.Errorf("browser could not start: %w", err))
		return
	}
	r.page = page
	defer func() {
		if r.page != nil {
			_ = r.page.Close()
		}
	}()

	if err := r.login(ctx, creds); err != nil {
		r.abort(err)
		return
	}

	for i, order := range plan.Orders {
		if err := ctx.Err(); err != nil {
			r.cancel(plan.Orders[i:], err)
			return
		}

		r.order = order.Index
		err := r.runOrder(ctx, order)
		r.record(order, err)
		if err == nil {
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			r.cancel(plan.Orders[i+1:], ctxErr)
			return
		}
		if i == len(plan.Orders)-1 {
			break
		}
		if err := r.recover(ctx, creds); err != nil {
			r.abort(err)
			return
		}
	}
}

var (
	loginInput    = browser.CSS("input#login")
	passwordInput = browser.CSS("input#password")
	submitButton  = browser.CSS("button[type='submit']")

	twoFactorMarkers = []browser.Target{
		browser.CSS("input[name='totp_token']"),
		browser.CSS("form[action*='totp']"),
	}
	blockedMarkers = []browser.Target{
		browser.WithText(".alert-danger", "too many"),
		browser.WithText(".alert-danger", "blocked"),
	}
	loginErrorMarkers = []browser.Target{
		browser.CSS(".alert-danger"),
	}
)

func onLoginPage(url string) bool {
	return strings.Contains(strings.ToLower(url), "login")
}

func (r *run) login(ctx context.Context, creds Credentials) error {
	r.step(StepLogin, "Logging into Odoo...")

	navCtx, cancel := context.WithTimeout(ctx, r.d.opts.NavigationTimeout)
	err := r.page.Navigate(navCtx, r.d.opts.LoginURL)
	cancel()
	if err != nil {
		return r.classify(ctx, err)
	}

	url, err := r.page.URL()
	if err != nil {
		return err
	}
	if !onLoginPage(url) {
		r.res.LoggedIn = true
		r.status(LevelSuccess, "Already logged in")
		return nil
	}

	err = r.within(ctx, r.d.opts.StepTimeout, func(ctx context.Context) error {
		if err := r.fill(ctx, creds.Email, loginInput); err != nil {
			return err
		}
		if err := r.fill(ctx, creds.Password, passwordInput); err != nil {
			return err
		}
		return r.click(ctx, submitButton)
	})
	if err != nil {
		return r.classify(ctx, err)
	}

	if err := r.awaitLogin(ctx); err != nil {
		return err
	}
	r.res.LoggedIn = true
	r.status(LevelSuccess, "Logged in successfully")
	return nil
}

// awaitLogin waits for the ERP to leave the login page, classifying any
// error it shows instead.
func (r *run) awaitLogin(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, r.d.opts.StepTimeout)
	defer cancel()

	ticker := time.NewTicker(r.d.opts.PollInterval)
	defer ticker.Stop()

	for {
		url, err := r.page.URL()
		if err != nil {
			return err
		}
		if !onLoginPage(url) {
			return nil
		}
		if err := r.loginProblem(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w: still on the login page", ErrInvalidCredentials)
		case <-ticker.C:
		}
	}
}

func (r *run) loginProblem(ctx context.Context) error {
	checks := []struct {
		targets []browser.Target
		err     error
	}{
		{twoFactorMarkers, ErrTwoFactorUnsupported},
		{blockedMarkers, ErrLoginBlocked},
		{loginErrorMarkers, ErrInvalidCredentials},
	}
	for _, c := range checks {
		if found, err := r.page.Has(ctx, c.targets...); err == nil && found {
			return c.err
		}
	}
	return nil
}

func (r *run) runOrder(ctx context.Context, o Order) error {
	if r.orders > 1 {
		r.status(LevelInfo, fmt.Sprintf("Starting order %d/%d: %d x %s", o.Index, r.orders, o.Quantity(), o.Product))
	}

	for _, s := range orderWorkflow {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: s.step, Err: err}
		}
		r.step(s.step, s.describe(o))

		timeout := r.d.opts.StepTimeout
		if s.step == StepOpenList {
			timeout = r.d.opts.NavigationTimeout
		}
		err := r.within(ctx, timeout, func(ctx context.Context) error {
			return s.act(r, ctx, o)
		})
		if err == nil {
			continue
		}
		if s.optional && ctx.Err() == nil {
			r.event(Event{Kind: KindStep, Level: LevelWarning, Step: s.step,
				Message: fmt.Sprintf("%s skipped: %v", s.step.Label(), err)})
			continue
		}
		return &StepError{Step: s.step, Err: r.classify(ctx, err)}
	}
	return nil
}

// recover returns the browser to the order list after a failed order. A page
// that cannot navigate is replaced by a fresh one, which needs a new login.
func (r *run) recover(ctx context.Context, creds Credentials) error {
	r.status(LevelWarning, "Returning to the manufacturing order list")

	navCtx, cancel := context.WithTimeout(ctx, r.d.opts.NavigationTimeout)
	err := r.page.Navigate(navCtx, r.d.opts.StartURL)
	cancel()
	if err == nil {
		return nil
	}

	r.status(LevelWarning, fmt.Sprintf("Page unresponsive (%v), opening a fresh page", err))
	_ = r.page.Close()
	r.page = nil

	page, err := r.d.opener.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("browser could not start: %w", err)
	}
	r.page = page
	return r.login(ctx, creds)
}

// within runs fn with a deadline of timeout.
func (r *run) within(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// classify maps a step deadline to ErrTimeout. Cancellation of the run
// itself is passed through unchanged.
func (r *run) classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (r *run) settle(ctx context.Context) error {
	if r.d.opts.Settle <= 0 {
		return nil
	}
	t := time.NewTimer(r.d.opts.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *run) click(ctx context.Context, targets ...browser.Target) error {
	el, err := r.page.Find(ctx, targets...)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (r *run) fill(ctx context.Context, text string, targets ...browser.Target) error {
	el, err := r.page.Find(ctx, targets...)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(ctx); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return el.Fill(ctx, text)
}

// record stores the outcome of an order on its items.
func (r *run) record(o Order, err error) {
	out := OrderResult{
		Index:    o.Index,
		Product:  o.Product,
		Quantity: o.Quantity(),
		OK:       err == nil,
	}

	for _, s := range o.Serials {
		it := &r.res.Items[r.index[s]]
		it.Attempted = true
		it.OK = err == nil
		if err != nil {
			it.Error = err.Error()
		}
	}

	if err == nil {
		r.event(Event{Kind: KindOrder, Level: LevelSuccess,
			Message: fmt.Sprintf("Order %d/%d completed: %d x %s", o.Index, r.orders, o.Quantity(), o.Product)})
		r.res.Orders = append(r.res.Orders, out)
		return
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		out.Step = stepErr.Step
	}
	out.Error = err.Error()
	r.res.Orders = append(r.res.Orders, out)

	r.event(Event{Kind: KindOrder, Level: LevelError, Step: out.Step,
		Message: fmt.Sprintf("Order %d/%d failed: %v", o.Index, r.orders, err)})
	if errors.Is(err, ErrTimeout) {
		r.status(LevelWarning, TimeoutHint)
	}
}

// cancel marks the serials of orders that never started as cancelled.
func (r *run) cancel(orders []Order, err error) {
	for _, o := range orders {
		for _, s := range o.Serials {
			it := &r.res.Items[r.index[s]]
			if it.Error == "" && !it.OK {
				it.Error = "cancelled"
			}
		}
	}
	r.res.Err = err
	r.status(LevelWarning, "Batch cancelled")
}

// abort stops the run. Every serial without an outcome fails with err.
func (r *run) abort(err error) {
	r.res.Err = err
	for i := range r.res.Items {
		it := &r.res.Items[i]
		if !it.OK && it.Error == "" {
			it.Error = err.Error()
		}
	}

	msg := err.Error()
	if errors.Is(err, ErrTimeout) {
		msg += "; " + TimeoutHint
	}
	r.status(LevelError, msg)
}

func (r *run) complete() *Result {
	res := r.res
	for i := range res.Items {
		it := &res.Items[i]
		if !it.OK && it.Error == "" {
			it.Error = "not processed"
		}
		if it.OK {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	res.FinishedAt = r.d.now()

	if res.Success() {
		r.event(Event{Kind: KindComplete, Level: LevelSuccess, Message: "Marathon completed successfully!"})
	} else {
		r.event(Event{Kind: KindComplete, Level: LevelError,
			Message: fmt.Sprintf("Marathon finished: %d succeeded, %d failed", res.Succeeded, res.Failed)})
	}
	return res
}

func (r *run) step(s Step, msg string) {
	r.event(Event{Kind: KindStep, Level: LevelInfo, Step: s, Message: s.Label() + ": " + msg})
}

func (r *run) status(level Level, msg string) {
	r.event(Event{Kind: KindStatus, Level: level, Message: msg})
}

func (r *run) event(e Event) {
	e.Time = r.d.now()
	e.BatchID = r.res.BatchID
	if e.Kind == KindStep || e.Kind == KindOrder {
		e.Order, e.Orders = r.order, r.orders
	}

	fields := []zap.Field{zap.String("kind", string(e.Kind))}
	if e.Step != 0 {
		fields = append(fields, zap.Stringer("step", e.Step))
	}
	if e.Order != 0 {
		fields = append(fields, zap.Int("order", e.Order))
	}
	switch e.Level {
	case LevelError:
		r.logger.Error(e.Message, fields...)
	case LevelWarning:
		r.logger.Warn(e.Message, fields...)
	default:
		r.logger.Info(e.Message, fields...)
	}

	r.emit.Emit(e)
}
