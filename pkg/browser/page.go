package browser

import (
	"context"
	"strings"
)

// Target identifies an element by CSS selector and, optionally, by a
// JavaScript regular expression its text must match (for example
// "/Confirm/i").
type Target struct {
	Selector string
	Text     string
}

// CSS returns a target matching selector alone.
func CSS(selector string) Target {
	return Target{Selector: selector}
}

// WithText returns a target matching selector whose text matches the
// case-insensitive literal text.
func WithText(selector, text string) Target {
	return Target{Selector: selector, Text: "/" + escapeRegexp(text) + "/i"}
}

func (t Target) String() string {
	if t.Text == "" {
		return t.Selector
	}
	return t.Selector + " " + t.Text
}

func escapeRegexp(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\^$.|?*+()[]{}/`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Page is a browser tab.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// URL returns the current location.
	URL() (string, error)
	// Find waits until one of targets exists and returns it. Targets are
	// alternatives; whichever appears first wins.
	Find(ctx context.Context, targets ...Target) (Element, error)
	// Has reports whether one of targets exists right now, without waiting.
	Has(ctx context.Context, targets ...Target) (bool, error)
	Close() error
}

// Element is a DOM element on a Page.
type Element interface {
	Click(ctx context.Context) error
	// Fill replaces the element's value with text.
	Fill(ctx context.Context, text string) error
	// PressEnter sends the Enter key to the element.
	PressEnter(ctx context.Context) error
	WaitVisible(ctx context.Context) error
	Text(ctx context.Context) (string, error)
}
