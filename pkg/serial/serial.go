package serial

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// MinLength is the shortest serial accepted.
	MinLength = 2
	// MaxLength is the longest serial accepted.
	MaxLength = 50
)

// Reasons reported for invalid serials.
const (
	ReasonTooShort     = "Too short"
	ReasonTooLong      = "Too long"
	ReasonInvalidChars = "Invalid characters"
)

var (
	// ErrNoSerials is returned when an input contains no usable serial.
	ErrNoSerials = errors.New("no valid serials provided")
	// ErrProductUnknown is returned when a product can neither be detected
	// nor was selected.
	ErrProductUnknown = errors.New("could not detect product - please select manually")
)

var (
	urlParamPattern = regexp.MustCompile(`[?&]s=([A-Za-z0-9._-]+)`)
	allowedPattern  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Invalid is a rejected serial and the reason it was rejected.
type Invalid struct {
	Serial string `json:"serial"`
	Reason string `json:"reason"`
}

// Validation is the outcome of Validate.
type Validation struct {
	Valid      []string  `json:"valid"`
	Duplicates []string  `json:"duplicates"`
	Invalid    []Invalid `json:"invalid"`
}

// Clean extracts serials from raw operator input, one per line. Lines that
// carry an s= query parameter contribute the parameter value. Entries
// shorter than MinLength are dropped; order and duplicates are kept.
func Clean(raw string) []string {
	cleaned := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		serial := line
		if m := urlParamPattern.FindStringSubmatch(line); m != nil {
			serial = m[1]
		}
		if len(serial) >= MinLength {
			cleaned = append(cleaned, serial)
		}
	}
	return cleaned
}

// Validate classifies serials. The first occurrence of a serial is judged on
// its own merits; every later occurrence is listed in Duplicates.
func Validate(serials []string) Validation {
	result := Validation{
		Valid:      []string{},
		Duplicates: []string{},
		Invalid:    []Invalid{},
	}
	seen := make(map[string]struct{}, len(serials))

	for _, s := range serials {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			result.Duplicates = append(result.Duplicates, s)
			continue
		}
		seen[s] = struct{}{}

		if reason := check(s); reason != "" {
			result.Invalid = append(result.Invalid, Invalid{Serial: s, Reason: reason})
			continue
		}
		result.Valid = append(result.Valid, s)
	}
	return result
}

func check(s string) string {
	switch {
	case len(s) < MinLength:
		return ReasonTooShort
	case len(s) > MaxLength:
		return ReasonTooLong
	case !allowedPattern.MatchString(s):
		return ReasonInvalidChars
	}
	return ""
}

// Dedupe returns serials with later duplicates removed, keeping order.
func Dedupe(serials []string) []string {
	out := make([]string, 0, len(serials))
	seen := make(map[string]struct{}, len(serials))
	for _, s := range serials {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Group is a set of serials belonging to one product.
type Group struct {
	Product string
	Serials []string
}

// GroupByProduct partitions serials by product. When product is non-empty
// every serial is assigned to it. Otherwise each serial is detected with
// the default catalog; serials with no matching prefix are returned in
// undetected. Groups appear in order of first occurrence.
func GroupByProduct(serials []string, product string) (groups []Group, undetected []string) {
	if product != "" {
		if len(serials) == 0 {
			return nil, nil
		}
		return []Group{{Product: product, Serials: append([]string(nil), serials...)}}, nil
	}

	index := map[string]int{}
	for _, s := range serials {
		p, ok := DetectProduct(s)
		if !ok {
			undetected = append(undetected, s)
			continue
		}
		i, seen := index[p]
		if !seen {
			i = len(groups)
			index[p] = i
			groups = append(groups, Group{Product: p})
		}
		groups[i].Serials = append(groups[i].Serials, s)
	}
	return groups, undetected
}
