// Package driver automates production orders in the Odoo manufacturing UI.
//
// A Run takes a list of serials, plans one or more production orders from
// them, logs into the ERP once and then walks each order through the ten
// step workflow (new order, product, quantity, confirm, serial
// registration, generate, mark as done). Progress is reported as Events;
// the outcome is a Result holding exactly one Item per unique serial.
//
// A failed login aborts the run before any order is touched. A failure
// inside an order marks that order's serials failed, returns the browser to
// the order list, and continues with the next order. Orders are never
// retried automatically since resubmitting can create a duplicate order in
// the ERP.
package driver
