// Package serial parses, validates and classifies device serial numbers.
//
// Operators paste serials one per line, either bare or as the compliance
// dashboard URL printed on a label (…/lights/?s=<serial>). Clean extracts
// the serial from either form, Validate sorts the result into valid,
// duplicate and invalid entries, and DetectProduct maps a serial prefix to
// the product it belongs to.
package serial
