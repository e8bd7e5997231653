package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

type rodPage struct {
	manager    *Manager
	context    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration
}

var _ Page = (*rodPage)(nil)

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.navTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Find(ctx context.Context, targets ...Target) (Element, error) {
	if len(targets) == 0 {
		return nil, errors.New("no targets")
	}
	race := p.page.Context(ctx).Race()
	for _, t := range targets {
		if t.Text == "" {
			race = race.Element(t.Selector)
		} else {
			race = race.ElementR(t.Selector, t.Text)
		}
	}
	el, err := race.Do()
	if err != nil {
		return nil, fmt.Errorf("find %v: %w", targets, err)
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) Has(ctx context.Context, targets ...Target) (bool, error) {
	page := p.page.Context(ctx)
	for _, t := range targets {
		var (
			found bool
			err   error
		)
		if t.Text == "" {
			found, _, err = page.Has(t.Selector)
		} else {
			found, _, err = page.HasR(t.Selector, t.Text)
		}
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (p *rodPage) Close() error {
	p.manager.release(p)
	err := p.page.Close()
	if cerr := p.context.Close(); err == nil {
		err = cerr
	}
	return err
}

type rodElement struct {
	el *rod.Element
}

var _ Element = (*rodElement)(nil)

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (e *rodElement) PressEnter(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}

func (e *rodElement) WaitVisible(ctx context.Context) error {
	return e.el.Context(ctx).WaitVisible()
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}
