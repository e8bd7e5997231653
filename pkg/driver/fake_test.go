package driver

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/browser"
)

const (
	testLoginURL  = "https://erp.example.com/web/login"
	testStartURL  = "https://erp.example.com/odoo/action-mrp.mrp_production_action"
	validEmail    = "operator@example.com"
	validPassword = "hunter2"
)

// fakeBrowser hands out scripted pages.
type fakeBrowser struct {
	mu        sync.Mutex
	pages     []*fakePage
	openErr   error
	configure func(p *fakePage, n int)
}

func (b *fakeBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	p := newFakePage()
	b.pages = append(b.pages, p)
	if b.configure != nil {
		b.configure(p, len(b.pages))
	}
	return p, nil
}

// fakePage mimics the ERP. Every target can be found unless listed in
// absent; Has only reports targets listed in shown. Submitting the login
// form with the valid credentials moves the page off the login URL,
// otherwise the targets in loginShows become shown.
type fakePage struct {
	mu          sync.Mutex
	url         string
	fields      map[string]string
	actions     []string
	absent      map[string]int
	shown       map[string]bool
	onClick     map[string]func()
	loginShows  []string
	navErr      error
	breakOnMiss bool
	closed      bool
}

func newFakePage() *fakePage {
	return &fakePage{
		url:        "about:blank",
		fields:     map[string]string{},
		absent:     map[string]int{},
		shown:      map[string]bool{},
		onClick:    map[string]func(){},
		loginShows: []string{".alert-danger"},
	}
}

var _ browser.Page = (*fakePage)(nil)

func (p *fakePage) record(action string) {
	p.actions = append(p.actions, action)
}

func (p *fakePage) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate " + url)
	if p.navErr != nil {
		return p.navErr
	}
	p.url = url
	return nil
}

func (p *fakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) Find(ctx context.Context, targets ...browser.Target) (browser.Element, error) {
	p.mu.Lock()
	for _, t := range targets {
		key := t.String()
		if n, ok := p.absent[key]; ok && n != 0 {
			if n > 0 {
				p.absent[key] = n - 1
			}
			continue
		}
		p.mu.Unlock()
		return &fakeElement{page: p, key: key}, nil
	}
	if p.breakOnMiss {
		p.navErr = errors.New("target closed")
	}
	p.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *fakePage) Has(ctx context.Context, targets ...browser.Target) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range targets {
		if p.shown[t.String()] {
			return true, nil
		}
	}
	return false, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) submitLogin() {
	if p.fields[loginInput.String()] == validEmail && p.fields[passwordInput.String()] == validPassword {
		p.url = testStartURL
		return
	}
	for _, s := range p.loginShows {
		p.shown[s] = true
	}
}

type fakeElement struct {
	page *fakePage
	key  string
}

func (e *fakeElement) Click(ctx context.Context) error {
	p := e.page
	p.mu.Lock()
	p.record("click " + e.key)
	if e.key == submitButton.String() {
		p.submitLogin()
	}
	hook := p.onClick[e.key]
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (e *fakeElement) Fill(ctx context.Context, text string) error {
	p := e.page
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields[e.key] = text
	p.record("fill " + e.key + "=" + text)
	return nil
}

func (e *fakeElement) PressEnter(ctx context.Context) error {
	p := e.page
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("enter " + e.key)
	return nil
}

func (e *fakeElement) WaitVisible(ctx context.Context) error { return nil }

func (e *fakeElement) Text(ctx context.Context) (string, error) { return "", nil }

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) Steps() []Step {
	var steps []Step
	for _, e := range r.Events() {
		if e.Kind == KindStep && e.Level == LevelInfo {
			steps = append(steps, e.Step)
		}
	}
	return steps
}

func (r *recorder) Has(level Level, substr string) bool {
	for _, e := range r.Events() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
