// Package label renders QR code labels for device serials.
//
// Each label encodes the serial's compliance dashboard URL. PNG renders a
// single on-screen preview; PDF lays labels out on US Letter sheets sized
// for DYMO 30256 stock (2.25" x 1.25"), three across and eight down.
package label
