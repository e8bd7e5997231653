package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
)

// Mode selects how serials are split into production orders.
type Mode string

const (
	// ModeBatch creates one order per product holding all of its serials.
	ModeBatch Mode = config.RunModeBatch
	// ModePerItem creates one order of quantity one per serial.
	ModePerItem Mode = config.RunModePerItem
)

// ParseMode parses a mode name. The empty string selects ModeBatch.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBatch:
		return ModeBatch, nil
	case ModePerItem:
		return ModePerItem, nil
	}
	return "", fmt.Errorf("invalid mode %q (valid: %s)", s, strings.Join(config.ValidRunModes, ", "))
}

// Credentials are the operator's ERP login.
type Credentials struct {
	Email    string
	Password string
}

// Empty reports whether either field is missing.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.Email) == "" || c.Password == ""
}

// Request describes one run.
type Request struct {
	// BatchID identifies the run. A random ID is assigned when empty.
	BatchID string
	// Product forces every serial onto one product. When empty the product
	// is detected per serial.
	Product     string
	Serials     []string
	Credentials Credentials
	Mode        Mode
	// MaxOrderSize splits larger orders into chunks. Zero means no limit.
	MaxOrderSize int
}

// Order is one production order to create.
type Order struct {
	// Index is 1-based.
	Index   int
	Product string
	Serials []string
}

// Quantity is the order's production quantity.
func (o Order) Quantity() int {
	return len(o.Serials)
}

// Plan is a prepared run.
type Plan struct {
	// Serials holds each unique submitted serial in submission order.
	Serials []string
	Orders  []Order
	// Rejected holds serials that will not be attempted, with the reason.
	Rejected map[string]string
	// Product summarises the products involved.
	Product string
}

// ReasonNotDetected is recorded for serials with no matching product.
const ReasonNotDetected = "product not detected"

// Prepare validates req and plans its orders. The plan is returned even
// when err is non-nil so callers can record the serials it rejected.
func Prepare(req Request) (*Plan, error) {
	var trimmed []string
	for _, s := range req.Serials {
		if s = strings.TrimSpace(s); s != "" {
			trimmed = append(trimmed, s)
		}
	}

	plan := &Plan{
		Serials:  serial.Dedupe(trimmed),
		Rejected: map[string]string{},
		Product:  strings.TrimSpace(req.Product),
	}

	validation := serial.Validate(plan.Serials)
	for _, inv := range validation.Invalid {
		plan.Rejected[inv.Serial] = inv.Reason
	}
	if len(validation.Valid) == 0 {
		return plan, serial.ErrNoSerials
	}

	groups, undetected := serial.GroupByProduct(validation.Valid, plan.Product)
	for _, s := range undetected {
		plan.Rejected[s] = ReasonNotDetected
	}
	if len(groups) == 0 {
		return plan, serial.ErrProductUnknown
	}

	if plan.Product == "" {
		products := make([]string, 0, len(groups))
		for _, g := range groups {
			products = append(products, g.Product)
		}
		plan.Product = strings.Join(products, ", ")
	}

	if req.Credentials.Empty() {
		return plan, ErrCredentialsRequired
	}
	if req.MaxOrderSize < 0 {
		return plan, errors.New("max order size must not be negative")
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeBatch
	}
	for _, g := range groups {
		for _, chunk := range split(g.Serials, mode, req.MaxOrderSize) {
			plan.Orders = append(plan.Orders, Order{
				Index:   len(plan.Orders) + 1,
				Product: g.Product,
				Serials: chunk,
			})
		}
	}
	return plan, nil
}

func split(serials []string, mode Mode, max int) [][]string {
	size := len(serials)
	if mode == ModePerItem {
		size = 1
	} else if max > 0 && max < size {
		size = max
	}

	var chunks [][]string
	for start := 0; start < len(serials); start += size {
		end := start + size
		if end > len(serials) {
			end = len(serials)
		}
		chunks = append(chunks, serials[start:end])
	}
	return chunks
}
