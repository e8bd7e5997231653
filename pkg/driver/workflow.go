package driver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/browser"
)

// stage is one step of the per-order workflow.
type stage struct {
	step     Step
	describe func(o Order) string
	// optional stages log a warning and let the order continue on failure.
	optional bool
	act      func(r *run, ctx context.Context, o Order) error
}

func fixed(msg string) func(Order) string {
	return func(Order) string { return msg }
}

var (
	newButton       = browser.CSS("button.o_list_button_add")
	productInput    = browser.CSS("div[name='product_id'] input")
	quantityInput   = browser.CSS("div[name='product_qty'] input")
	confirmButton   = browser.WithText("button", "Confirm")
	registerButtons = []browser.Target{
		browser.WithText("button", "Register Production"),
		browser.WithText("button", "Open"),
	}
	serialTextareas = []browser.Target{
		browser.CSS("textarea[name='lot_name']"),
		browser.CSS("textarea.o_input"),
	}
	generateButton = browser.WithText("button", "Generate")
	doneButtons    = []browser.Target{
		browser.WithText("button", "Mark as Done"),
		browser.WithText("button", "Done"),
	}
	dialogButtons = []browser.Target{
		browser.WithText("button", "Apply"),
		browser.WithText("button.btn-primary", "OK"),
	}
)

// orderWorkflow holds steps 2 to 10. Step 1, the login, runs once per page.
var orderWorkflow = []stage{
	{
		step:     StepOpenList,
		describe: fixed("Loading Manufacturing Orders..."),
		act: func(r *run, ctx context.Context, _ Order) error {
			return r.page.Navigate(ctx, r.d.opts.StartURL)
		},
	},
	{
		step:     StepNewOrder,
		describe: fixed("Creating new production..."),
		act: func(r *run, ctx context.Context, _ Order) error {
			return r.click(ctx, newButton)
		},
	},
	{
		step: StepSetProduct,
		describe: func(o Order) string {
			return fmt.Sprintf("Setting product to %s...", o.Product)
		},
		act: func(r *run, ctx context.Context, o Order) error {
			return r.fillAndEnter(ctx, o.Product, productInput)
		},
	},
	{
		step: StepSetQuantity,
		describe: func(o Order) string {
			return fmt.Sprintf("Setting quantity to %d...", o.Quantity())
		},
		act: func(r *run, ctx context.Context, o Order) error {
			return r.fillAndEnter(ctx, strconv.Itoa(o.Quantity()), quantityInput)
		},
	},
	{
		step:     StepConfirm,
		describe: fixed("Confirming order..."),
		act: func(r *run, ctx context.Context, _ Order) error {
			if err := r.click(ctx, confirmButton); err != nil {
				return err
			}
			return r.settle(ctx)
		},
	},
	{
		step:     StepOpenSerials,
		describe: fixed("Opening serial numbers..."),
		act: func(r *run, ctx context.Context, _ Order) error {
			return r.click(ctx, registerButtons...)
		},
	},
	{
		step:     StepFillSerials,
		describe: fixed("Entering serial numbers..."),
		act: func(r *run, ctx context.Context, o Order) error {
			return r.fill(ctx, strings.Join(o.Serials, "\n"), serialTextareas...)
		},
	},
	{
		step:     StepGenerate,
		describe: fixed("Generating serial numbers..."),
		act: func(r *run, ctx context.Context, _ Order) error {
			if err := r.click(ctx, generateButton); err != nil {
				return err
			}
			return r.settle(ctx)
		},
	},
	{
		step:     StepMarkDone,
		describe: fixed("Marking as done..."),
		optional: true,
		act: func(r *run, ctx context.Context, _ Order) error {
			if err := r.click(ctx, doneButtons...); err != nil {
				return err
			}
			r.acceptDialog(ctx)
			return nil
		},
	},
}

// fillAndEnter types text into a many2one or numeric field and commits it.
// The pause before Enter lets the autocomplete dropdown load.
func (r *run) fillAndEnter(ctx context.Context, text string, target browser.Target) error {
	el, err := r.page.Find(ctx, target)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(ctx); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	if err := el.Fill(ctx, text); err != nil {
		return err
	}
	if err := r.settle(ctx); err != nil {
		return err
	}
	if err := el.PressEnter(ctx); err != nil {
		return err
	}
	return r.settle(ctx)
}

// acceptDialog clicks through the confirmation dialog Odoo shows for
// backorders and immediate transfers, when there is one.
func (r *run) acceptDialog(ctx context.Context) {
	err := r.within(ctx, r.d.opts.DialogTimeout, func(ctx context.Context) error {
		return r.click(ctx, dialogButtons...)
	})
	if err == nil {
		r.status(LevelInfo, "Confirmation dialog accepted")
	}
}
